package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"retail-inventory/internal/models"
	"retail-inventory/internal/store"
	"retail-inventory/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleUnit is the part of a unit of work the processor drives: the stock
// ledger row operations and the audit trail appends.
type SaleUnit interface {
	LockAndRead(ctx context.Context, ownerID, productID int64) (*models.StockLevel, error)
	Decrement(ctx context.Context, ownerID, productID int64, amount int) error
	AppendSaleLine(ctx context.Context, line models.SaleLine) error
}

// UnitOfWork runs fn atomically: everything fn did is committed when it
// returns nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(unit SaleUnit) error) error
}

// SaleEventPublisher is notified after a sale commits
type SaleEventPublisher interface {
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
}

// ReceiptCache remembers receipts per idempotency key. The lock marks a key
// whose sale is still running.
type ReceiptCache interface {
	GetReceipt(ctx context.Context, key string) (*models.SaleReceipt, error)
	SaveReceipt(ctx context.Context, key string, receipt *models.SaleReceipt, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// checkoutLockTTL bounds how long a crashed request can block its own retries
const checkoutLockTTL = time.Minute

type storeUnitOfWork struct {
	store *store.Store
}

// NewStoreUnitOfWork runs units of work as Postgres transactions
func NewStoreUnitOfWork(s *store.Store) UnitOfWork {
	return &storeUnitOfWork{store: s}
}

func (u *storeUnitOfWork) Do(ctx context.Context, fn func(unit SaleUnit) error) error {
	return u.store.WithTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}

// SaleProcessor is the only code path that takes stock out of the ledger
type SaleProcessor struct {
	uow        UnitOfWork
	invoices   *InvoiceAllocator
	events     SaleEventPublisher
	receipts   ReceiptCache
	receiptTTL time.Duration
	logger     *zap.Logger
}

// NewSaleProcessor creates a new sale processor. events and receipts may be nil.
func NewSaleProcessor(
	uow UnitOfWork,
	invoices *InvoiceAllocator,
	events SaleEventPublisher,
	receipts ReceiptCache,
	receiptTTL time.Duration,
) *SaleProcessor {
	return &SaleProcessor{
		uow:        uow,
		invoices:   invoices,
		events:     events,
		receipts:   receipts,
		receiptTTL: receiptTTL,
		logger:     util.GetLogger(),
	}
}

// Checkout processes a sale once per idempotency key. A retry carrying a key
// that already produced a receipt gets that receipt back without touching stock;
// a retry arriving while the first request is still running is turned away
// with ErrContention.
func (p *SaleProcessor) Checkout(ctx context.Context, ownerID int64, idempotencyKey string, cart []models.CartLine) (*models.SaleReceipt, error) {
	if idempotencyKey == "" || p.receipts == nil {
		return p.ProcessSale(ctx, ownerID, cart)
	}

	key := fmt.Sprintf("sale:%d:%s", ownerID, idempotencyKey)
	if cached := p.cachedReceipt(ctx, key); cached != nil {
		return cached, nil
	}

	acquired, err := p.receipts.AcquireLock(ctx, key, checkoutLockTTL)
	if err != nil {
		p.logger.Warn("Idempotency lock failed, processing sale",
			zap.Int64("owner_id", ownerID),
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err))
	} else if !acquired {
		// the holder may have finished between the lookup and the lock
		if cached := p.cachedReceipt(ctx, key); cached != nil {
			return cached, nil
		}
		util.SalesFailedTotal.WithLabelValues("in_progress").Inc()
		return nil, fmt.Errorf("sale with idempotency key %q in progress: %w", idempotencyKey, models.ErrContention)
	}

	receipt, err := p.ProcessSale(ctx, ownerID, cart)
	if err != nil {
		if acquired {
			if rerr := p.receipts.ReleaseLock(ctx, key); rerr != nil {
				p.logger.Error("Failed to release idempotency lock",
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(rerr))
			}
		}
		return nil, err
	}

	// the lock is left to expire: once the receipt is saved lookups answer first
	if err := p.receipts.SaveReceipt(ctx, key, receipt, p.receiptTTL); err != nil {
		p.logger.Error("Failed to cache sale receipt",
			zap.String("invoice_id", receipt.InvoiceID),
			zap.Error(err))
	}
	return receipt, nil
}

func (p *SaleProcessor) cachedReceipt(ctx context.Context, key string) *models.SaleReceipt {
	cached, err := p.receipts.GetReceipt(ctx, key)
	if err != nil {
		p.logger.Warn("Idempotency lookup failed",
			zap.String("key", key),
			zap.Error(err))
		return nil
	}
	if cached != nil {
		util.SaleReplaysTotal.Inc()
		p.logger.Info("Duplicate sale request detected",
			zap.String("key", key),
			zap.String("invoice_id", cached.InvoiceID))
	}
	return cached
}

// ProcessSale validates the cart, then in one unit of work locks every product,
// checks and decrements stock and appends the audit rows of each line. Either
// all lines are applied or none is.
func (p *SaleProcessor) ProcessSale(ctx context.Context, ownerID int64, cart []models.CartLine) (*models.SaleReceipt, error) {
	ctx, span := util.StartSpan(ctx, "SaleProcessor.ProcessSale")
	defer span.End()

	if err := validateCart(ownerID, cart); err != nil {
		util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	invoiceID, err := p.invoices.Allocate(ctx, ownerID)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.SpanError(span, err)
		return nil, err
	}

	start := time.Now()
	var receipt *models.SaleReceipt
	err = p.uow.Do(ctx, func(unit SaleUnit) error {
		r, err := applyCart(ctx, unit, ownerID, invoiceID, cart)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	util.SaleProcessingLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		util.SalesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.SpanError(span, err)
		p.logger.Warn("Sale rolled back",
			zap.Int64("owner_id", ownerID),
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return nil, err
	}

	util.SalesProcessedTotal.Inc()
	util.SaleLinesTotal.Add(float64(receipt.LineCount))
	p.logger.Info("Sale recorded",
		zap.Int64("owner_id", ownerID),
		zap.String("invoice_id", receipt.InvoiceID),
		zap.Int("lines", receipt.LineCount),
		zap.String("total_amount", receipt.TotalAmount.StringFixed(2)))

	p.publishCompleted(ctx, ownerID, receipt, cart)
	return receipt, nil
}

// applyCart is the body of the sale unit of work. Rows are locked in ascending
// product id so two carts naming the same products in different orders cannot
// deadlock; lines are then applied in cart order and the first failure wins.
func applyCart(ctx context.Context, unit SaleUnit, ownerID int64, invoiceID string, cart []models.CartLine) (*models.SaleReceipt, error) {
	lockStart := time.Now()
	levels, missing, err := lockProducts(ctx, unit, ownerID, cart)
	util.SaleLockWaitLatency.Observe(time.Since(lockStart).Seconds())
	if err != nil {
		return nil, err
	}

	receipt := &models.SaleReceipt{
		InvoiceID:   invoiceID,
		TotalAmount: decimal.Zero,
		TotalProfit: decimal.Zero,
	}
	taken := make(map[int64]int, len(levels))

	for _, line := range cart {
		if err, ok := missing[line.ProductID]; ok {
			return nil, err
		}
		level := levels[line.ProductID]

		available := level.Quantity - taken[line.ProductID]
		if available < line.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   line.ProductID,
				ProductName: level.Name,
				Requested:   line.Quantity,
				Available:   available,
			}
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		totalAmount := line.UnitSalePrice.Mul(qty)
		totalInvestment := level.WholesalePrice.Mul(qty)
		profit := totalAmount.Sub(totalInvestment)

		err := unit.AppendSaleLine(ctx, models.SaleLine{
			OwnerID:         ownerID,
			InvoiceID:       invoiceID,
			ProductID:       line.ProductID,
			ProductName:     level.Name,
			Quantity:        line.Quantity,
			SalePriceEach:   line.UnitSalePrice,
			TotalAmount:     totalAmount,
			TotalInvestment: totalInvestment,
			Profit:          profit,
		})
		if err != nil {
			return nil, err
		}

		if err := unit.Decrement(ctx, ownerID, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}

		taken[line.ProductID] += line.Quantity
		receipt.LineCount++
		receipt.TotalAmount = receipt.TotalAmount.Add(totalAmount)
		receipt.TotalProfit = receipt.TotalProfit.Add(profit)
	}

	return receipt, nil
}

// lockProducts locks each distinct product of the cart once, in ascending id.
// Products that do not exist for the owner are reported in missing rather than
// aborting, so the caller can fail on the first bad line in cart order.
func lockProducts(ctx context.Context, unit SaleUnit, ownerID int64, cart []models.CartLine) (map[int64]*models.StockLevel, map[int64]error, error) {
	ids := make([]int64, 0, len(cart))
	seen := make(map[int64]bool, len(cart))
	for _, line := range cart {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	levels := make(map[int64]*models.StockLevel, len(ids))
	missing := make(map[int64]error)
	for _, id := range ids {
		level, err := unit.LockAndRead(ctx, ownerID, id)
		if errors.Is(err, models.ErrNotFound) {
			missing[id] = err
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		levels[id] = level
	}
	return levels, missing, nil
}

func (p *SaleProcessor) publishCompleted(ctx context.Context, ownerID int64, receipt *models.SaleReceipt, cart []models.CartLine) {
	if p.events == nil {
		return
	}

	items := make([]models.SaleItemData, 0, len(cart))
	for _, line := range cart {
		items = append(items, models.SaleItemData{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitSalePrice,
		})
	}

	event := &models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Now(),
		},
		OwnerID:     ownerID,
		InvoiceID:   receipt.InvoiceID,
		TotalAmount: receipt.TotalAmount,
		Items:       items,
	}

	if err := p.events.PublishSaleCompleted(ctx, event); err != nil {
		p.logger.Error("Failed to publish SaleCompleted event",
			zap.String("invoice_id", receipt.InvoiceID),
			zap.Error(err))
	}
}

// failureReason labels a sale failure for metrics
func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrContention):
		return "contention"
	default:
		return "storage"
	}
}
