package store

import (
	"context"
	"time"

	"retail-inventory/internal/models"

	"github.com/shopspring/decimal"
)

// CreateExpense records an expense and fills in its id and date
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	row := s.db.QueryRowxContext(ctx, `
		INSERT INTO expenses (owner_id, title, amount)
		VALUES ($1, $2, $3)
		RETURNING id, expense_date`,
		expense.OwnerID, expense.Title, expense.Amount)
	if err := row.Scan(&expense.ID, &expense.ExpenseDate); err != nil {
		return classify(err, "create expense")
	}
	return nil
}

// ExpenseTotal sums the expenses of an owner in [from, to]
func (s *Store) ExpenseTotal(ctx context.Context, ownerID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE owner_id = $1 AND expense_date BETWEEN $2 AND $3`, ownerID, from, to)
	if err != nil {
		return decimal.Zero, classify(err, "expense total")
	}
	return total, nil
}
