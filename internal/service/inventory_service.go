package service

import (
	"context"
	"time"

	"retail-inventory/internal/models"
	"retail-inventory/internal/store"
	"retail-inventory/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockEventPublisher is notified about catalog and replenishment changes
type StockEventPublisher interface {
	PublishStockAdded(ctx context.Context, event *models.StockAddedEvent) error
	PublishProductArchived(ctx context.Context, event *models.ProductArchivedEvent) error
}

// InventoryService handles catalog maintenance around the stock ledger
type InventoryService struct {
	store             *store.Store
	events            StockEventPublisher
	lowStockThreshold int
	logger            *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store *store.Store, events StockEventPublisher, lowStockThreshold int) *InventoryService {
	return &InventoryService{
		store:             store,
		events:            events,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// AddProductRequest represents a new catalog item with its opening stock
type AddProductRequest struct {
	OwnerID        int64           `json:"user_id" validate:"gt=0"`
	TypeID         *int64          `json:"type_id,omitempty"`
	Name           string          `json:"name" validate:"required"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	WholesalePrice decimal.Decimal `json:"wholesale_price" validate:"gt=0"`
	SalePrice      decimal.Decimal `json:"sale_price" validate:"gt=0"`
	ImageURL       *string         `json:"image_url,omitempty"`
}

// ReplenishRequest represents stock arriving for an existing product
type ReplenishRequest struct {
	OwnerID       int64 `json:"user_id" validate:"gt=0"`
	ProductID     int64 `json:"product_id" validate:"gt=0"`
	QuantityToAdd int   `json:"quantity_to_add" validate:"gt=0"`
}

// AddProduct creates a product and records its opening stock addition
func (s *InventoryService) AddProduct(ctx context.Context, req *AddProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddProduct")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		OwnerID:        req.OwnerID,
		TypeID:         req.TypeID,
		Name:           req.Name,
		Quantity:       req.Quantity,
		WholesalePrice: req.WholesalePrice,
		SalePrice:      req.SalePrice,
		ImageURL:       req.ImageURL,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		util.SpanError(span, err)
		return nil, err
	}

	util.StockReplenishedTotal.Add(float64(product.Quantity))
	s.logger.Info("Product added",
		zap.Int64("owner_id", product.OwnerID),
		zap.Int64("product_id", product.ID),
		zap.Int("quantity", product.Quantity))

	s.publishStockAdded(ctx, product.OwnerID, product.ID, product.Quantity)
	return product, nil
}

// Replenish increments the ledger of one product
func (s *InventoryService) Replenish(ctx context.Context, req *ReplenishRequest) (*models.StockAddition, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Replenish")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	addition, err := s.store.Increment(ctx, req.OwnerID, req.ProductID, req.QuantityToAdd)
	if err != nil {
		util.SpanError(span, err)
		return nil, err
	}

	util.StockReplenishedTotal.Add(float64(req.QuantityToAdd))
	s.logger.Info("Stock replenished",
		zap.Int64("owner_id", req.OwnerID),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity_added", req.QuantityToAdd))

	s.publishStockAdded(ctx, req.OwnerID, req.ProductID, req.QuantityToAdd)
	return addition, nil
}

// Archive removes a product from the active catalog
func (s *InventoryService) Archive(ctx context.Context, ownerID, productID int64) error {
	if ownerID <= 0 {
		return &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	if productID <= 0 {
		return &models.ValidationError{Field: "product_id", Message: "must be greater than 0"}
	}

	if err := s.store.Archive(ctx, ownerID, productID); err != nil {
		return err
	}

	util.ProductsArchivedTotal.Inc()
	s.logger.Info("Product archived",
		zap.Int64("owner_id", ownerID),
		zap.Int64("product_id", productID))

	if s.events != nil {
		event := &models.ProductArchivedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeProductArchive,
				Timestamp: time.Now(),
			},
			OwnerID:   ownerID,
			ProductID: productID,
		}
		if err := s.events.PublishProductArchived(ctx, event); err != nil {
			s.logger.Error("Failed to publish ProductArchived event", zap.Error(err))
		}
	}
	return nil
}

// ListProducts returns the active catalog of an owner
func (s *InventoryService) ListProducts(ctx context.Context, ownerID int64) ([]models.Product, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	return s.store.ListProducts(ctx, ownerID)
}

// LowStock returns products at or below the notification threshold
func (s *InventoryService) LowStock(ctx context.Context, ownerID int64) ([]models.LowStockItem, error) {
	if ownerID <= 0 {
		return nil, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	return s.store.LowStock(ctx, ownerID, s.lowStockThreshold)
}

// CountLowStock counts products at or below the notification threshold
func (s *InventoryService) CountLowStock(ctx context.Context, ownerID int64) (int, error) {
	if ownerID <= 0 {
		return 0, &models.ValidationError{Field: "user_id", Message: "must be greater than 0"}
	}
	return s.store.CountLowStock(ctx, ownerID, s.lowStockThreshold)
}

func (s *InventoryService) publishStockAdded(ctx context.Context, ownerID, productID int64, quantity int) {
	if s.events == nil {
		return
	}

	event := &models.StockAddedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockAdded,
			Timestamp: time.Now(),
		},
		OwnerID:       ownerID,
		ProductID:     productID,
		QuantityAdded: quantity,
	}
	if err := s.events.PublishStockAdded(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockAdded event", zap.Error(err))
	}
}
