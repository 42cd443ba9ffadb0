package service

import (
	"context"
	"fmt"
	"time"

	"retail-inventory/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReportReader is the read-only side of the store used by reports
type ReportReader interface {
	SalesSummary(ctx context.Context, ownerID int64, from, to time.Time) (*models.SalesSummary, error)
	CurrentStockValue(ctx context.Context, ownerID int64) (decimal.Decimal, error)
	InvestmentBetween(ctx context.Context, ownerID int64, from, to time.Time) (decimal.Decimal, error)
	TotalInvestment(ctx context.Context, ownerID int64) (decimal.Decimal, error)
	QuantityByProduct(ctx context.Context, ownerID int64, from, to time.Time) ([]models.ProductQuantity, error)
	SalesHistory(ctx context.Context, ownerID int64, from, to *time.Time) ([]models.SaleTransactionDetail, error)
	InvoiceLines(ctx context.Context, ownerID int64, invoiceID string) ([]models.SaleTransactionDetail, error)
}

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"

	monthLayout = "2006-01"
)

// Analytics ranks products by units sold over a period
type Analytics struct {
	Period         string                   `json:"period"`
	ChartData      []models.ProductQuantity `json:"chartData"`
	HighestProduct *models.ProductQuantity  `json:"highestProduct"`
	LowestProduct  *models.ProductQuantity  `json:"lowestProduct"`
}

// Invoice is one invoice with its grand total
type Invoice struct {
	InvoiceID  string                         `json:"invoice_id"`
	Lines      []models.SaleTransactionDetail `json:"items"`
	GrandTotal decimal.Decimal                `json:"grand_total"`
	SaleDate   time.Time                      `json:"sale_date"`
}

// ReportService aggregates the audit trail. It never takes row locks.
type ReportService struct {
	reader ReportReader
	now    func() time.Time
}

// NewReportService creates a new report service
func NewReportService(reader ReportReader) *ReportService {
	return &ReportService{reader: reader, now: time.Now}
}

// Report builds the owner dashboard. filter picks the sales window; month
// (YYYY-MM, default current month) picks the monthly investment window and,
// for the monthly filter, the sales window too.
func (s *ReportService) Report(ctx context.Context, ownerID int64, filter, month string) (*models.Report, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}

	now := s.now()
	if month == "" {
		month = now.Format(monthLayout)
	}
	monthStart, monthEnd, err := monthRange(month, now.Location())
	if err != nil {
		return nil, err
	}
	salesFrom, salesTo, err := reportRange(filter, now, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	report := &models.Report{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.reader.SalesSummary(ctx, ownerID, salesFrom, salesTo)
		if err != nil {
			return err
		}
		report.Sales = *summary
		return nil
	})
	g.Go(func() error {
		v, err := s.reader.CurrentStockValue(ctx, ownerID)
		report.CurrentStockValue = v
		return err
	})
	g.Go(func() error {
		v, err := s.reader.InvestmentBetween(ctx, ownerID, monthStart, monthEnd)
		report.MonthlyInvestment = v
		return err
	})
	g.Go(func() error {
		v, err := s.reader.TotalInvestment(ctx, ownerID)
		report.TotalInvestment = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// Analytics returns units sold per product from the start of the period up to
// the end of today.
func (s *ReportService) Analytics(ctx context.Context, ownerID int64, period string) (*Analytics, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	if period == "" {
		period = PeriodDaily
	}

	from, to, err := analyticsRange(period, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.reader.QuantityByProduct(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}

	result := &Analytics{Period: period, ChartData: rows}
	if len(rows) > 0 {
		result.HighestProduct = &rows[0]
		result.LowestProduct = &rows[len(rows)-1]
	}
	return result, nil
}

// SalesHistory lists transaction details, newest first
func (s *ReportService) SalesHistory(ctx context.Context, ownerID int64, from, to *time.Time) ([]models.SaleTransactionDetail, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, &models.ValidationError{Field: "to", Message: "must not be before from"}
	}
	return s.reader.SalesHistory(ctx, ownerID, from, to)
}

// Invoice looks up every line of an invoice
func (s *ReportService) Invoice(ctx context.Context, ownerID int64, invoiceID string) (*Invoice, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	if invoiceID == "" {
		return nil, &models.ValidationError{Field: "invoice_id", Message: "is required"}
	}

	lines, err := s.reader.InvoiceLines(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}

	invoice := &Invoice{InvoiceID: invoiceID, Lines: lines, GrandTotal: decimal.Zero}
	for _, line := range lines {
		invoice.GrandTotal = invoice.GrandTotal.Add(line.TotalAmount)
	}
	if len(lines) > 0 {
		invoice.SaleDate = lines[0].SaleDate
	}
	return invoice, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// startOfWeek returns the Monday of t's week
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func monthRange(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(monthLayout, month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &models.ValidationError{Field: "month", Message: "must be formatted as YYYY-MM"}
	}
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
}

// reportRange is the sales window of a report: today, the whole current week
// (Monday to Sunday) or the selected month.
func reportRange(filter string, now, monthStart, monthEnd time.Time) (time.Time, time.Time, error) {
	switch filter {
	case "", PeriodDaily:
		return startOfDay(now), endOfDay(now), nil
	case PeriodWeekly:
		start := startOfWeek(now)
		return start, endOfDay(start.AddDate(0, 0, 6)), nil
	case PeriodMonthly:
		return monthStart, monthEnd, nil
	default:
		return time.Time{}, time.Time{}, &models.ValidationError{
			Field:   "filter",
			Message: fmt.Sprintf("must be one of %s, %s, %s", PeriodDaily, PeriodWeekly, PeriodMonthly),
		}
	}
}

// analyticsRange runs from the start of the period to the end of today
func analyticsRange(period string, now time.Time) (time.Time, time.Time, error) {
	switch period {
	case PeriodDaily:
		return startOfDay(now), endOfDay(now), nil
	case PeriodWeekly:
		return startOfWeek(now), endOfDay(now), nil
	case PeriodMonthly:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), endOfDay(now), nil
	default:
		return time.Time{}, time.Time{}, &models.ValidationError{
			Field:   "period",
			Message: fmt.Sprintf("must be one of %s, %s, %s", PeriodDaily, PeriodWeekly, PeriodMonthly),
		}
	}
}
