package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"retail-inventory/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpenseStore struct {
	mu      sync.Mutex
	created []*models.Expense
	ranges  []rangeCall
	totals  map[time.Time]decimal.Decimal
	err     error
}

func (f *fakeExpenseStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if f.err != nil {
		return f.err
	}
	expense.ID = int64(len(f.created) + 1)
	f.created = append(f.created, expense)
	return nil
}

func (f *fakeExpenseStore) ExpenseTotal(ctx context.Context, ownerID int64, from, to time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rangeCall{from, to})
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.totals[from], nil
}

func newTestExpenseService(store ExpenseStore) *ExpenseService {
	s := NewExpenseService(store)
	s.now = func() time.Time { return reportNow }
	return s
}

func TestAddExpense(t *testing.T) {
	store := &fakeExpenseStore{}
	s := newTestExpenseService(store)

	expense, err := s.AddExpense(context.Background(), &AddExpenseRequest{
		OwnerID: 7,
		Title:   "  Electricity ",
		Amount:  price("120.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), expense.ID)
	assert.Equal(t, "Electricity", expense.Title)
	require.Len(t, store.created, 1)
	assert.True(t, store.created[0].Amount.Equal(price("120.5")))
}

func TestAddExpense_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		req   AddExpenseRequest
		field string
	}{
		{"no owner", AddExpenseRequest{Title: "Rent", Amount: price("10")}, "user_id"},
		{"blank title", AddExpenseRequest{OwnerID: 7, Title: "   ", Amount: price("10")}, "title"},
		{"zero amount", AddExpenseRequest{OwnerID: 7, Title: "Rent", Amount: price("0")}, "amount"},
		{"sub-cent amount", AddExpenseRequest{OwnerID: 7, Title: "Rent", Amount: price("10.005")}, "amount"},
		{"amount beyond column range", AddExpenseRequest{OwnerID: 7, Title: "Rent", Amount: price("10000000000")}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeExpenseStore{}
			s := newTestExpenseService(store)

			req := tt.req
			_, err := s.AddExpense(context.Background(), &req)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, store.created)
		})
	}
}

func TestExpenseSummary_Windows(t *testing.T) {
	dayStart := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	weekStart := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeExpenseStore{totals: map[time.Time]decimal.Decimal{
		dayStart:   price("5"),
		weekStart:  price("20.5"),
		monthStart: price("75"),
	}}
	s := newTestExpenseService(store)

	summary, err := s.ExpenseSummary(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, summary.Daily.Equal(price("5")))
	assert.True(t, summary.Weekly.Equal(price("20.5")))
	assert.True(t, summary.Monthly.Equal(price("75")))

	ends := map[time.Time]time.Time{}
	for _, r := range store.ranges {
		ends[r.from] = r.to
	}
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), ends[dayStart])
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), ends[weekStart])
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), ends[monthStart])
}

func TestExpenseSummary_Errors(t *testing.T) {
	s := newTestExpenseService(&fakeExpenseStore{err: models.ErrStorage})

	_, err := s.ExpenseSummary(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrStorage)

	_, err = s.ExpenseSummary(context.Background(), 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
