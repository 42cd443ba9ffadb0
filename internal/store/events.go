package store

import (
	"context"
	"fmt"
)

// NextInvoiceSeq draws the next value of the invoice sequence. Sequences are
// not transactional, so the value is never handed out twice and the call
// holds no product lock.
func (s *Store) NextInvoiceSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.GetContext(ctx, &seq, "SELECT nextval('invoice_seq')"); err != nil {
		return 0, classify(err, "next invoice sequence")
	}
	return seq, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	if err != nil {
		return false, classify(err, fmt.Sprintf("check event %s", eventID))
	}
	return exists, nil
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return classify(err, fmt.Sprintf("mark event %s", eventID))
}
