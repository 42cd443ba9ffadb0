package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"retail-inventory/internal/models"

	"github.com/shopspring/decimal"
)

type memProduct struct {
	ownerID   int64
	name      string
	quantity  int
	wholesale decimal.Decimal
	active    bool
}

// memLedger is an in-memory stand-in for the products and sales tables.
// Each product row has its own mutex held from LockAndRead until the unit of
// work ends, like a FOR UPDATE lock. Writes are staged and applied on commit.
type memLedger struct {
	mu       sync.Mutex
	products map[int64]*memProduct
	rowLocks map[int64]*sync.Mutex
	lines    []models.SaleLine

	lockErr   map[int64]error
	appendErr error
	lockOrder []int64
	commits   int
	rollbacks int
}

func newMemLedger() *memLedger {
	return &memLedger{
		products: make(map[int64]*memProduct),
		rowLocks: make(map[int64]*sync.Mutex),
		lockErr:  make(map[int64]error),
	}
}

func (l *memLedger) addProduct(id, ownerID int64, name string, quantity int, wholesale string) {
	l.products[id] = &memProduct{
		ownerID:   ownerID,
		name:      name,
		quantity:  quantity,
		wholesale: decimal.RequireFromString(wholesale),
		active:    true,
	}
	l.rowLocks[id] = &sync.Mutex{}
}

func (l *memLedger) quantity(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[id].quantity
}

func (l *memLedger) committedLines() []models.SaleLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.SaleLine(nil), l.lines...)
}

func (l *memLedger) Do(ctx context.Context, fn func(unit SaleUnit) error) error {
	unit := &memUnit{ledger: l, held: make(map[int64]bool), delta: make(map[int64]int)}
	defer unit.release()

	if err := fn(unit); err != nil {
		l.mu.Lock()
		l.rollbacks++
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, d := range unit.delta {
		l.products[id].quantity += d
	}
	l.lines = append(l.lines, unit.lines...)
	l.commits++
	return nil
}

type memUnit struct {
	ledger *memLedger
	held   map[int64]bool
	delta  map[int64]int
	lines  []models.SaleLine
}

func (u *memUnit) release() {
	for id := range u.held {
		u.ledger.rowLocks[id].Unlock()
	}
}

func (u *memUnit) LockAndRead(ctx context.Context, ownerID, productID int64) (*models.StockLevel, error) {
	l := u.ledger

	l.mu.Lock()
	l.lockOrder = append(l.lockOrder, productID)
	if err := l.lockErr[productID]; err != nil {
		l.mu.Unlock()
		return nil, err
	}
	p, ok := l.products[productID]
	if !ok || p.ownerID != ownerID || !p.active {
		l.mu.Unlock()
		return nil, fmt.Errorf("lock product %d: %w", productID, models.ErrNotFound)
	}
	rowLock := l.rowLocks[productID]
	l.mu.Unlock()

	if !u.held[productID] {
		rowLock.Lock()
		u.held[productID] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return &models.StockLevel{
		ProductID:      productID,
		Name:           p.name,
		Quantity:       p.quantity + u.delta[productID],
		WholesalePrice: p.wholesale,
	}, nil
}

func (u *memUnit) Decrement(ctx context.Context, ownerID, productID int64, amount int) error {
	if !u.held[productID] {
		return fmt.Errorf("decrement product %d without lock", productID)
	}
	u.delta[productID] -= amount
	return nil
}

func (u *memUnit) AppendSaleLine(ctx context.Context, line models.SaleLine) error {
	if u.ledger.appendErr != nil {
		return u.ledger.appendErr
	}
	u.lines = append(u.lines, line)
	return nil
}

type seqCounter struct {
	next  int64
	calls int64
	err   error
}

func (c *seqCounter) NextInvoiceSeq(ctx context.Context) (int64, error) {
	atomic.AddInt64(&c.calls, 1)
	if c.err != nil {
		return 0, c.err
	}
	return atomic.AddInt64(&c.next, 1), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.SaleCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type memReceipts struct {
	mu       sync.Mutex
	receipts map[string]*models.SaleReceipt
	ttls     map[string]time.Duration
	locks    map[string]bool
	lockErr  error

	// gate holds the first gateSize lookups until all of them arrived
	gate     *sync.WaitGroup
	gateSize int
	lookups  int
}

func newMemReceipts() *memReceipts {
	return &memReceipts{
		receipts: make(map[string]*models.SaleReceipt),
		ttls:     make(map[string]time.Duration),
		locks:    make(map[string]bool),
	}
}

func (m *memReceipts) gateLookups(n int) {
	m.gate = &sync.WaitGroup{}
	m.gate.Add(n)
	m.gateSize = n
}

func (m *memReceipts) GetReceipt(ctx context.Context, key string) (*models.SaleReceipt, error) {
	m.mu.Lock()
	gated := m.gate != nil && m.lookups < m.gateSize
	m.lookups++
	m.mu.Unlock()

	if gated {
		m.gate.Done()
		m.gate.Wait()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receipts[key], nil
}

func (m *memReceipts) SaveReceipt(ctx context.Context, key string, receipt *models.SaleReceipt, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[key] = receipt
	m.ttls[key] = ttl
	return nil
}

func (m *memReceipts) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return false, m.lockErr
	}
	if m.locks[lockKey] {
		return false, nil
	}
	m.locks[lockKey] = true
	return true, nil
}

func (m *memReceipts) ReleaseLock(ctx context.Context, lockKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockKey)
	return nil
}

func (m *memReceipts) locked(lockKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[lockKey]
}
