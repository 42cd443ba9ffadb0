package service

import (
	"context"
	"fmt"
	"time"
)

// InvoiceCounter hands out values that never repeat, across processes.
// Implemented by the Postgres invoice sequence and by a Redis counter.
type InvoiceCounter interface {
	NextInvoiceSeq(ctx context.Context) (int64, error)
}

// InvoiceAllocator builds customer facing invoice identifiers of the form
// INV-{owner}-{yyyyMMdd}-{seq}. Uniqueness comes from the counter alone; the
// owner and date only make the id readable.
type InvoiceAllocator struct {
	counter InvoiceCounter
	now     func() time.Time
}

// NewInvoiceAllocator creates an allocator on top of a counter
func NewInvoiceAllocator(counter InvoiceCounter) *InvoiceAllocator {
	return &InvoiceAllocator{counter: counter, now: time.Now}
}

// Allocate returns a fresh invoice id for ownerID
func (a *InvoiceAllocator) Allocate(ctx context.Context, ownerID int64) (string, error) {
	seq, err := a.counter.NextInvoiceSeq(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate invoice id: %w", err)
	}
	return fmt.Sprintf("INV-%d-%s-%06d", ownerID, a.now().UTC().Format("20060102"), seq), nil
}
