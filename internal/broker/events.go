package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"retail-inventory/internal/models"
	"retail-inventory/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func ownerKey(ownerID int64) string {
	return fmt.Sprintf("owner-%d", ownerID)
}

// PublishSaleCompleted publishes SaleCompleted event
func (ep *EventPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, ownerKey(event.OwnerID), event)
}

// PublishStockAdded publishes StockAdded event
func (ep *EventPublisher) PublishStockAdded(ctx context.Context, event *models.StockAddedEvent) error {
	return ep.producer.PublishEvent(ctx, ownerKey(event.OwnerID), event)
}

// PublishProductArchived publishes ProductArchived event
func (ep *EventPublisher) PublishProductArchived(ctx context.Context, event *models.ProductArchivedEvent) error {
	return ep.producer.PublishEvent(ctx, ownerKey(event.OwnerID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSaleCompleted func(context.Context, *models.SaleCompletedEvent) error
	onStockAdded    func(context.Context, *models.StockAddedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleCompleted registers a handler for SaleCompleted events
func (eh *EventHandler) OnSaleCompleted(handler func(context.Context, *models.SaleCompletedEvent) error) {
	eh.onSaleCompleted = handler
}

// OnStockAdded registers a handler for StockAdded events
func (eh *EventHandler) OnStockAdded(handler func(context.Context, *models.StockAddedEvent) error) {
	eh.onStockAdded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSaleCompleted:
		if eh.onSaleCompleted != nil {
			var event models.SaleCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleCompleted event: %w", err)
			}
			return eh.onSaleCompleted(ctx, &event)
		}

	case models.EventTypeStockAdded:
		if eh.onStockAdded != nil {
			var event models.StockAddedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockAdded event: %w", err)
			}
			return eh.onStockAdded(ctx, &event)
		}

	default:
		logger.Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
