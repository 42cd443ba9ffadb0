package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item owned by one store
type Product struct {
	ID             int64           `db:"id" json:"id"`
	OwnerID        int64           `db:"owner_id" json:"user_id"`
	TypeID         *int64          `db:"type_id" json:"type_id,omitempty"`
	Name           string          `db:"name" json:"name"`
	Quantity       int             `db:"quantity" json:"quantity"`
	WholesalePrice decimal.Decimal `db:"wholesale_price" json:"wholesale_price"`
	SalePrice      decimal.Decimal `db:"sale_price" json:"sale_price"`
	ImageURL       *string         `db:"image_url" json:"image_url,omitempty"`
	Active         bool            `db:"is_active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// StockLevel is the locked view of a product row inside a unit of work
type StockLevel struct {
	ProductID      int64           `db:"id"`
	Name           string          `db:"name"`
	Quantity       int             `db:"quantity"`
	WholesalePrice decimal.Decimal `db:"wholesale_price"`
}

// StockAddition is an append-only record of stock entering the store
type StockAddition struct {
	ID                 int64           `db:"id" json:"id"`
	OwnerID            int64           `db:"owner_id" json:"user_id"`
	ProductID          int64           `db:"product_id" json:"product_id"`
	QuantityAdded      int             `db:"quantity_added" json:"quantity_added"`
	WholesalePriceEach decimal.Decimal `db:"wholesale_price_each" json:"wholesale_price_each"`
	AdditionDate       time.Time       `db:"addition_date" json:"addition_date"`
}

// Sale is the per-line financial record of a checkout
type Sale struct {
	ID              int64           `db:"id" json:"id"`
	OwnerID         int64           `db:"owner_id" json:"user_id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	QuantitySold    int             `db:"quantity_sold" json:"quantity_sold"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	TotalInvestment decimal.Decimal `db:"total_investment" json:"total_investment"`
	Profit          decimal.Decimal `db:"profit" json:"profit"`
	SaleDate        time.Time       `db:"sale_date" json:"sale_date"`
}

// SaleTransactionDetail is the customer facing history row of one invoice line
type SaleTransactionDetail struct {
	ID            int64           `db:"id" json:"id"`
	OwnerID       int64           `db:"owner_id" json:"user_id"`
	InvoiceID     string          `db:"invoice_id" json:"invoice_id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	ProductName   string          `db:"product_name" json:"product_name"`
	QuantitySold  int             `db:"quantity_sold" json:"quantity_sold"`
	SalePriceEach decimal.Decimal `db:"sale_price_each" json:"sale_price_each"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	SaleDate      time.Time       `db:"sale_date" json:"sale_date"`
}

// SaleLine carries everything the audit trail needs for one processed cart line.
// It produces exactly one Sale and one SaleTransactionDetail row.
type SaleLine struct {
	OwnerID         int64
	InvoiceID       string
	ProductID       int64
	ProductName     string
	Quantity        int
	SalePriceEach   decimal.Decimal
	TotalAmount     decimal.Decimal
	TotalInvestment decimal.Decimal
	Profit          decimal.Decimal
}

// Sale returns the financial row of the line
func (l SaleLine) Sale() *Sale {
	return &Sale{
		OwnerID:         l.OwnerID,
		ProductID:       l.ProductID,
		QuantitySold:    l.Quantity,
		TotalAmount:     l.TotalAmount,
		TotalInvestment: l.TotalInvestment,
		Profit:          l.Profit,
	}
}

// Detail returns the history row of the line
func (l SaleLine) Detail() *SaleTransactionDetail {
	return &SaleTransactionDetail{
		OwnerID:       l.OwnerID,
		InvoiceID:     l.InvoiceID,
		ProductID:     l.ProductID,
		ProductName:   l.ProductName,
		QuantitySold:  l.Quantity,
		SalePriceEach: l.SalePriceEach,
		TotalAmount:   l.TotalAmount,
	}
}

// CartLine is one requested item of a checkout
type CartLine struct {
	ProductID     int64
	Quantity      int
	UnitSalePrice decimal.Decimal
}

// SaleReceipt is returned once a sale has been committed
type SaleReceipt struct {
	InvoiceID   string          `json:"invoice_id"`
	LineCount   int             `json:"line_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

// SalesSummary aggregates the sales table over a range
type SalesSummary struct {
	TotalSales      decimal.Decimal `db:"total_sales" json:"total_sales"`
	TotalInvestment decimal.Decimal `db:"total_investment" json:"total_investment"`
	TotalProfit     decimal.Decimal `db:"total_profit" json:"total_profit"`
}

// Report is the owner dashboard payload
type Report struct {
	Sales             SalesSummary    `json:"sales_report"`
	CurrentStockValue decimal.Decimal `json:"current_stock_value"`
	MonthlyInvestment decimal.Decimal `json:"monthly_investment"`
	TotalInvestment   decimal.Decimal `json:"total_investment"`
}

// ProductQuantity is the analytics row of quantity sold per product name
type ProductQuantity struct {
	ProductName   string `db:"product_name" json:"product_name"`
	TotalQuantity int64  `db:"total_quantity" json:"total_quantity"`
}

// LowStockItem is a product at or below the notification threshold
type LowStockItem struct {
	ProductID int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Expense is an operating cost of the store, outside the stock ledger
type Expense struct {
	ID          int64           `db:"id" json:"id"`
	OwnerID     int64           `db:"owner_id" json:"user_id"`
	Title       string          `db:"title" json:"title"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	ExpenseDate time.Time       `db:"expense_date" json:"expense_date"`
}

// ExpenseSummary totals expenses for today, this week and this month
type ExpenseSummary struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
}
