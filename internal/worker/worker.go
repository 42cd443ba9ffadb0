package worker

import (
	"context"
	"time"

	"retail-inventory/internal/broker"
	"retail-inventory/internal/models"
	"retail-inventory/internal/util"

	"go.uber.org/zap"
)

// EventLedger is the store side of the worker: consumer dedupe and stock reads
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	LowStockAmong(ctx context.Context, ownerID int64, productIDs []int64, threshold int) ([]models.LowStockItem, error)
}

// AlertRegistry remembers which products were already alerted
type AlertRegistry interface {
	MarkAlerted(ctx context.Context, ownerID, productID int64, ttl time.Duration) (bool, error)
	ClearAlert(ctx context.Context, ownerID, productID int64) error
}

// LowStockWorker raises an alert when a sale leaves a product at or below the
// threshold, at most once per product per alert TTL.
type LowStockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	ledger       EventLedger
	alerts       AlertRegistry
	threshold    int
	alertTTL     time.Duration
	logger       *zap.Logger
}

// NewLowStockWorker creates a new low stock worker
func NewLowStockWorker(
	consumer *broker.Consumer,
	ledger EventLedger,
	alerts AlertRegistry,
	threshold int,
	alertTTL time.Duration,
) *LowStockWorker {
	w := &LowStockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		ledger:       ledger,
		alerts:       alerts,
		threshold:    threshold,
		alertTTL:     alertTTL,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnSaleCompleted(w.HandleSaleCompleted)
	w.eventHandler.OnStockAdded(w.HandleStockAdded)

	return w
}

// Start starts the worker
func (w *LowStockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting low stock worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LowStockWorker) Stop() error {
	w.logger.Info("Stopping low stock worker")
	return w.consumer.Close()
}

// HandleSaleCompleted checks the sold products against the threshold
func (w *LowStockWorker) HandleSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	processed, err := w.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Debug("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	ids := make([]int64, 0, len(event.Items))
	seen := make(map[int64]bool, len(event.Items))
	for _, item := range event.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	low, err := w.ledger.LowStockAmong(ctx, event.OwnerID, ids, w.threshold)
	if err != nil {
		return err
	}

	for _, item := range low {
		fresh, err := w.alerts.MarkAlerted(ctx, event.OwnerID, item.ProductID, w.alertTTL)
		if err != nil {
			w.logger.Error("Failed to record low stock alert",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		if !fresh {
			continue
		}

		util.LowStockAlertsTotal.Inc()
		w.logger.Warn("Low stock",
			zap.Int64("owner_id", event.OwnerID),
			zap.Int64("product_id", item.ProductID),
			zap.String("product_name", item.Name),
			zap.Int("quantity", item.Quantity),
			zap.String("invoice_id", event.InvoiceID))
	}

	return w.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// HandleStockAdded re-arms the alert of a product that is back above the threshold
func (w *LowStockWorker) HandleStockAdded(ctx context.Context, event *models.StockAddedEvent) error {
	processed, err := w.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	low, err := w.ledger.LowStockAmong(ctx, event.OwnerID, []int64{event.ProductID}, w.threshold)
	if err != nil {
		return err
	}
	if len(low) == 0 {
		if err := w.alerts.ClearAlert(ctx, event.OwnerID, event.ProductID); err != nil {
			return err
		}
	}

	return w.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
