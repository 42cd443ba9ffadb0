package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCompleted  = "SALE_COMPLETED"
	EventTypeStockAdded     = "STOCK_ADDED"
	EventTypeProductArchive = "PRODUCT_ARCHIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCompletedEvent published after a sale commits
type SaleCompletedEvent struct {
	BaseEvent
	OwnerID     int64           `json:"owner_id"`
	InvoiceID   string          `json:"invoice_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []SaleItemData  `json:"items"`
}

// StockAddedEvent published after a replenishment or catalog add
type StockAddedEvent struct {
	BaseEvent
	OwnerID       int64 `json:"owner_id"`
	ProductID     int64 `json:"product_id"`
	QuantityAdded int   `json:"quantity_added"`
}

// ProductArchivedEvent published when a product leaves the catalog
type ProductArchivedEvent struct {
	BaseEvent
	OwnerID   int64 `json:"owner_id"`
	ProductID int64 `json:"product_id"`
}

// SaleItemData represents a sold line in events
type SaleItemData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
