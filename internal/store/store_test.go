package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"retail-inventory/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockQuery = `SELECT id, name, quantity, wholesale_price\s+FROM products\s+WHERE owner_id = \$1 AND id = \$2 AND is_active\s+FOR UPDATE`

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(sqlx.NewDb(db, "postgres"), 5*time.Second), mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout = 5000`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx *Tx) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_NoLockTimeoutWhenDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := New(sqlx.NewDb(db, "postgres"), 0)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.WithTx(context.Background(), func(tx *Tx) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAndRead(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "wholesale_price"}).
			AddRow(3, "Rice 5kg", 12, "4.75"))
	mock.ExpectCommit()

	var level *models.StockLevel
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		level, err = tx.LockAndRead(context.Background(), 7, 3)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), level.ProductID)
	assert.Equal(t, "Rice 5kg", level.Name)
	assert.Equal(t, 12, level.Quantity)
	assert.True(t, level.WholesalePrice.Equal(decimal.RequireFromString("4.75")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAndRead_MissingProduct(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WithArgs(int64(7), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "wholesale_price"}))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.LockAndRead(context.Background(), 7, 99)
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAndRead_LockTimeoutIsContention(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.LockAndRead(context.Background(), 7, 3)
		return err
	})
	assert.ErrorIs(t, err, models.ErrContention)
	assert.True(t, models.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE products SET quantity = quantity - \$1`).
		WithArgs(4, int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.Decrement(context.Background(), 7, 3, 4)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrement_CheckViolationIsStorage(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE products SET quantity = quantity - \$1`).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.Decrement(context.Background(), 7, 3, 400)
	})
	assert.ErrorIs(t, err, models.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSaleLine(t *testing.T) {
	s, mock := newMockStore(t)
	line := models.SaleLine{
		OwnerID:         7,
		InvoiceID:       "INV-7-20240515-000001",
		ProductID:       3,
		ProductName:     "Rice 5kg",
		Quantity:        2,
		SalePriceEach:   decimal.RequireFromString("6"),
		TotalAmount:     decimal.RequireFromString("12"),
		TotalInvestment: decimal.RequireFromString("9.5"),
		Profit:          decimal.RequireFromString("2.5"),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO sales \(`).
		WithArgs(int64(7), int64(3), 2, line.TotalAmount, line.TotalInvestment, line.Profit).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO sales_transactions \(`).
		WithArgs(int64(7), line.InvoiceID, int64(3), "Rice 5kg", 2, line.SalePriceEach, line.TotalAmount).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.AppendSaleLine(context.Background(), line)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSaleLine_NumericOverflowIsInvalidInput(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO sales \(`).
		WillReturnError(&pq.Error{Code: "22003", Message: "numeric field overflow"})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		return tx.AppendSaleLine(context.Background(), models.SaleLine{OwnerID: 7, ProductID: 3, Quantity: 1})
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.False(t, errors.Is(err, models.ErrStorage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrement(t *testing.T) {
	s, mock := newMockStore(t)
	added := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "wholesale_price"}).
			AddRow(3, "Rice 5kg", 2, "4.75"))
	mock.ExpectExec(`UPDATE products SET quantity = quantity \+ \$1`).
		WithArgs(10, int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO stock_additions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "addition_date"}).AddRow(21, added))
	mock.ExpectCommit()

	addition, err := s.Increment(context.Background(), 7, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(21), addition.ID)
	assert.Equal(t, 10, addition.QuantityAdded)
	assert.True(t, addition.WholesalePriceEach.Equal(decimal.RequireFromString("4.75")))
	assert.Equal(t, added, addition.AdditionDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrement_ArchivedProduct(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(lockQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "wholesale_price"}))
	mock.ExpectRollback()

	_, err := s.Increment(context.Background(), 7, 3, 10)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchive(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE products SET is_active = false`).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET is_active = false`).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Archive(context.Background(), 7, 3))
	assert.ErrorIs(t, s.Archive(context.Background(), 7, 3), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceLines_Unknown(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM sales_transactions\s+WHERE owner_id = \$1 AND invoice_id = \$2`).
		WithArgs(int64(7), "INV-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.InvoiceLines(context.Background(), 7, "INV-missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextInvoiceSeq(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT nextval\('invoice_seq'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(42))

	seq, err := s.NextInvoiceSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLowStockAmong(t *testing.T) {
	s, mock := newMockStore(t)

	items, err := s.LowStockAmong(context.Background(), 7, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, items)

	mock.ExpectQuery(`id IN \(\$3, \$4\)`).
		WithArgs(int64(7), 5, int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity"}).AddRow(4, "Salt", 1))

	items, err = s.LowStockAmong(context.Background(), 7, []int64{3, 4}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(4), items[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExpense(t *testing.T) {
	s, mock := newMockStore(t)
	spent := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	expense := &models.Expense{OwnerID: 7, Title: "Electricity", Amount: decimal.RequireFromString("120.50")}

	mock.ExpectQuery(`INSERT INTO expenses \(owner_id, title, amount\)`).
		WithArgs(int64(7), "Electricity", expense.Amount).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_date"}).AddRow(4, spent))

	require.NoError(t, s.CreateExpense(context.Background(), expense))
	assert.Equal(t, int64(4), expense.ID)
	assert.Equal(t, spent, expense.ExpenseDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseTotal(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\)\s+FROM expenses`).
		WithArgs(int64(7), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("75.25"))

	total, err := s.ExpenseTotal(context.Background(), 7, from, to)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("75.25")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, models.ErrNotFound},
		{"lock not available", &pq.Error{Code: "55P03"}, models.ErrContention},
		{"deadlock", &pq.Error{Code: "40P01"}, models.ErrContention},
		{"serialization", &pq.Error{Code: "40001"}, models.ErrContention},
		{"statement timeout", &pq.Error{Code: "57014"}, models.ErrContention},
		{"unique violation", &pq.Error{Code: "23505"}, models.ErrStorage},
		{"numeric overflow", &pq.Error{Code: "22003"}, models.ErrInvalidInput},
		{"deadline", context.DeadlineExceeded, models.ErrContention},
		{"connection refused", errors.New("dial tcp: connection refused"), models.ErrStorage},
		{"wrapped pq error", fmt.Errorf("exec: %w", &pq.Error{Code: "55P03"}), models.ErrContention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err, "op"), tt.want)
		})
	}

	assert.NoError(t, classify(nil, "op"))
}

func TestMigrationVersions(t *testing.T) {
	versions, err := migrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, []string{"001_init.sql", "002_expenses.sql"}, versions)
}
