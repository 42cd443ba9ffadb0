package service

import (
	"context"
	"strings"
	"time"

	"retail-inventory/internal/models"
	"retail-inventory/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExpenseStore persists expenses and totals them over a range
type ExpenseStore interface {
	CreateExpense(ctx context.Context, expense *models.Expense) error
	ExpenseTotal(ctx context.Context, ownerID int64, from, to time.Time) (decimal.Decimal, error)
}

// AddExpenseRequest represents one operating cost
type AddExpenseRequest struct {
	OwnerID int64           `json:"user_id" validate:"gt=0"`
	Title   string          `json:"title" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"gt=0"`
}

// ExpenseService records operating costs next to the sales figures
type ExpenseService struct {
	store  ExpenseStore
	now    func() time.Time
	logger *zap.Logger
}

// NewExpenseService creates a new expense service
func NewExpenseService(store ExpenseStore) *ExpenseService {
	return &ExpenseService{
		store:  store,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// AddExpense validates and stores an expense. Surrounding blanks of the title
// are dropped.
func (s *ExpenseService) AddExpense(ctx context.Context, req *AddExpenseRequest) (*models.Expense, error) {
	ctx, span := util.StartSpan(ctx, "ExpenseService.AddExpense")
	defer span.End()

	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		OwnerID: req.OwnerID,
		Title:   req.Title,
		Amount:  req.Amount,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		util.SpanError(span, err)
		return nil, err
	}

	util.ExpensesRecordedTotal.Inc()
	s.logger.Info("Expense recorded",
		zap.Int64("owner_id", expense.OwnerID),
		zap.Int64("expense_id", expense.ID),
		zap.String("amount", expense.Amount.StringFixed(2)))
	return expense, nil
}

// ExpenseSummary totals expenses for today, the current week (Monday to
// Sunday) and the current month.
func (s *ExpenseService) ExpenseSummary(ctx context.Context, ownerID int64) (*models.ExpenseSummary, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}

	now := s.now()
	weekStart := startOfWeek(now)
	monthStart, monthEnd, err := monthRange(now.Format(monthLayout), now.Location())
	if err != nil {
		return nil, err
	}

	summary := &models.ExpenseSummary{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.store.ExpenseTotal(ctx, ownerID, startOfDay(now), endOfDay(now))
		summary.Daily = v
		return err
	})
	g.Go(func() error {
		v, err := s.store.ExpenseTotal(ctx, ownerID, weekStart, endOfDay(weekStart.AddDate(0, 0, 6)))
		summary.Weekly = v
		return err
	})
	g.Go(func() error {
		v, err := s.store.ExpenseTotal(ctx, ownerID, monthStart, monthEnd)
		summary.Monthly = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
