package store

import (
	"context"
	"fmt"
	"time"

	"retail-inventory/internal/models"
)

// AppendSaleLine writes the sales row and the sales_transactions row of one
// cart line. It participates in the caller's transaction and never commits.
func (t *Tx) AppendSaleLine(ctx context.Context, line models.SaleLine) error {
	sale := line.Sale()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (owner_id, product_id, quantity_sold, total_amount, total_investment, profit)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sale.OwnerID, sale.ProductID, sale.QuantitySold, sale.TotalAmount, sale.TotalInvestment, sale.Profit)
	if err != nil {
		return classify(err, fmt.Sprintf("append sale for product %d", line.ProductID))
	}

	detail := line.Detail()
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO sales_transactions (owner_id, invoice_id, product_id, product_name, quantity_sold, sale_price_each, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		detail.OwnerID, detail.InvoiceID, detail.ProductID, detail.ProductName,
		detail.QuantitySold, detail.SalePriceEach, detail.TotalAmount)
	if err != nil {
		return classify(err, fmt.Sprintf("append transaction detail for product %d", line.ProductID))
	}

	return nil
}

// AppendStockAddition logs stock entering the store
func (t *Tx) AppendStockAddition(ctx context.Context, addition *models.StockAddition) error {
	query := `
		INSERT INTO stock_additions (owner_id, product_id, quantity_added, wholesale_price_each)
		VALUES ($1, $2, $3, $4)
		RETURNING id, addition_date`

	row := t.tx.QueryRowxContext(ctx, query,
		addition.OwnerID, addition.ProductID, addition.QuantityAdded, addition.WholesalePriceEach)
	if err := row.Scan(&addition.ID, &addition.AdditionDate); err != nil {
		return classify(err, fmt.Sprintf("append stock addition for product %d", addition.ProductID))
	}
	return nil
}

// SalesHistory retrieves transaction details of an owner, newest first.
// A nil bound leaves that side of the range open.
func (s *Store) SalesHistory(ctx context.Context, ownerID int64, from, to *time.Time) ([]models.SaleTransactionDetail, error) {
	details := []models.SaleTransactionDetail{}
	err := s.db.SelectContext(ctx, &details, `
		SELECT id, owner_id, invoice_id, product_id, product_name, quantity_sold, sale_price_each, total_amount, sale_date
		FROM sales_transactions
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR sale_date >= $2)
		  AND ($3::timestamptz IS NULL OR sale_date <= $3)
		ORDER BY sale_date DESC, id DESC`, ownerID, from, to)
	if err != nil {
		return nil, classify(err, "sales history")
	}
	return details, nil
}

// InvoiceLines retrieves every line of one invoice
func (s *Store) InvoiceLines(ctx context.Context, ownerID int64, invoiceID string) ([]models.SaleTransactionDetail, error) {
	details := []models.SaleTransactionDetail{}
	err := s.db.SelectContext(ctx, &details, `
		SELECT id, owner_id, invoice_id, product_id, product_name, quantity_sold, sale_price_each, total_amount, sale_date
		FROM sales_transactions
		WHERE owner_id = $1 AND invoice_id = $2
		ORDER BY id ASC`, ownerID, invoiceID)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("invoice %s", invoiceID))
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, models.ErrNotFound)
	}
	return details, nil
}
