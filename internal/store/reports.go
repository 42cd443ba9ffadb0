package store

import (
	"context"
	"time"

	"retail-inventory/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Read-only aggregates over the audit tables. Nothing here takes row locks.

// SalesSummary sums amount, investment and profit of sales in [from, to]
func (s *Store) SalesSummary(ctx context.Context, ownerID int64, from, to time.Time) (*models.SalesSummary, error) {
	var summary models.SalesSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COALESCE(SUM(total_amount), 0) AS total_sales,
		       COALESCE(SUM(total_investment), 0) AS total_investment,
		       COALESCE(SUM(profit), 0) AS total_profit
		FROM sales
		WHERE owner_id = $1 AND sale_date BETWEEN $2 AND $3`, ownerID, from, to)
	if err != nil {
		return nil, classify(err, "sales summary")
	}
	return &summary, nil
}

// CurrentStockValue values the active catalog at wholesale price
func (s *Store) CurrentStockValue(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := s.db.GetContext(ctx, &value, `
		SELECT COALESCE(SUM(quantity * wholesale_price), 0)
		FROM products
		WHERE owner_id = $1 AND is_active`, ownerID)
	if err != nil {
		return decimal.Zero, classify(err, "current stock value")
	}
	return value, nil
}

// InvestmentBetween sums stock additions in [from, to]
func (s *Store) InvestmentBetween(ctx context.Context, ownerID int64, from, to time.Time) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := s.db.GetContext(ctx, &value, `
		SELECT COALESCE(SUM(quantity_added * wholesale_price_each), 0)
		FROM stock_additions
		WHERE owner_id = $1 AND addition_date BETWEEN $2 AND $3`, ownerID, from, to)
	if err != nil {
		return decimal.Zero, classify(err, "investment between")
	}
	return value, nil
}

// TotalInvestment sums every stock addition of an owner
func (s *Store) TotalInvestment(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := s.db.GetContext(ctx, &value, `
		SELECT COALESCE(SUM(quantity_added * wholesale_price_each), 0)
		FROM stock_additions
		WHERE owner_id = $1`, ownerID)
	if err != nil {
		return decimal.Zero, classify(err, "total investment")
	}
	return value, nil
}

// QuantityByProduct ranks products by units sold in [from, to], highest first
func (s *Store) QuantityByProduct(ctx context.Context, ownerID int64, from, to time.Time) ([]models.ProductQuantity, error) {
	rows := []models.ProductQuantity{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT product_name, SUM(quantity_sold) AS total_quantity
		FROM sales_transactions
		WHERE owner_id = $1 AND sale_date BETWEEN $2 AND $3
		GROUP BY product_name
		ORDER BY total_quantity DESC, product_name ASC`, ownerID, from, to)
	if err != nil {
		return nil, classify(err, "quantity by product")
	}
	return rows, nil
}

// LowStock lists active products at or below threshold, scarcest first
func (s *Store) LowStock(ctx context.Context, ownerID int64, threshold int) ([]models.LowStockItem, error) {
	items := []models.LowStockItem{}
	err := s.db.SelectContext(ctx, &items, `
		SELECT id, name, quantity
		FROM products
		WHERE owner_id = $1 AND is_active AND quantity <= $2
		ORDER BY quantity ASC, name ASC`, ownerID, threshold)
	if err != nil {
		return nil, classify(err, "low stock")
	}
	return items, nil
}

// CountLowStock counts active products at or below threshold
func (s *Store) CountLowStock(ctx context.Context, ownerID int64, threshold int) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM products
		WHERE owner_id = $1 AND is_active AND quantity <= $2`, ownerID, threshold)
	if err != nil {
		return 0, classify(err, "count low stock")
	}
	return count, nil
}

// LowStockAmong narrows LowStock to the given products
func (s *Store) LowStockAmong(ctx context.Context, ownerID int64, productIDs []int64, threshold int) ([]models.LowStockItem, error) {
	if len(productIDs) == 0 {
		return []models.LowStockItem{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, quantity
		FROM products
		WHERE owner_id = ? AND is_active AND quantity <= ? AND id IN (?)
		ORDER BY quantity ASC, name ASC`, ownerID, threshold, productIDs)
	if err != nil {
		return nil, classify(err, "low stock among")
	}
	query = s.db.Rebind(query)

	items := []models.LowStockItem{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, classify(err, "low stock among")
	}
	return items, nil
}
