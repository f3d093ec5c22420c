package consumers

import (
	"context"
	"net/http"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
)

const queueName = "pharmacy-service.purchase-events"

// AlertRescanner refreshes the expiry alerts of one pharmacy
type AlertRescanner interface {
	ScanPharmacy(ctx context.Context, pharmacyID string) (*service.ScanResult, error)
}

// PurchaseEventConsumer keeps expiry alerts current when stock changes
// instead of waiting for the next scheduled scan
type PurchaseEventConsumer struct {
	consumer *messaging.Consumer
	scanner  AlertRescanner
	logger   *logger.Logger
}

// NewPurchaseEventConsumer creates a new purchase event consumer
func NewPurchaseEventConsumer(rmq *messaging.RabbitMQ, scanner AlertRescanner, log *logger.Logger) (*PurchaseEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, queueName, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePharmacyEvents, "purchase.#"); err != nil {
		return nil, err
	}

	c := newPurchaseEventConsumer(scanner, log)
	c.consumer = consumer

	consumer.RegisterHandler(messaging.EventPurchaseCreated, c.handlePurchaseCreated)
	consumer.RegisterHandler(messaging.EventPurchaseItemUpdated, c.handleItemUpdated)
	consumer.RegisterHandler(messaging.EventPurchaseItemDeleted, c.handleItemDeleted)

	return c, nil
}

func newPurchaseEventConsumer(scanner AlertRescanner, log *logger.Logger) *PurchaseEventConsumer {
	return &PurchaseEventConsumer{
		scanner: scanner,
		logger:  log.WithComponent("purchase_consumer"),
	}
}

// Start starts consuming messages
func (c *PurchaseEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *PurchaseEventConsumer) handlePurchaseCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.PurchaseCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("pharmacy_id", data.PharmacyID).
		Str("purchase_id", data.PurchaseID).
		Msg("received purchase created event")

	return c.rescan(ctx, data.PharmacyID)
}

func (c *PurchaseEventConsumer) handleItemUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.PurchaseItemUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	if !touchesAlerts(data.Fields) {
		return nil
	}

	c.logger.Info().
		Str("pharmacy_id", data.PharmacyID).
		Str("purchase_item_id", data.PurchaseItemID).
		Strs("fields", data.Fields).
		Msg("received purchase item updated event")

	return c.rescan(ctx, data.PharmacyID)
}

func (c *PurchaseEventConsumer) handleItemDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.PurchaseItemDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("pharmacy_id", data.PharmacyID).
		Str("purchase_item_id", data.PurchaseItemID).
		Msg("received purchase item deleted event")

	return c.rescan(ctx, data.PharmacyID)
}

func (c *PurchaseEventConsumer) rescan(ctx context.Context, pharmacyID string) error {
	if pharmacyID == "" {
		c.logger.Warn().Msg("purchase event without pharmacy_id, skipping alert rescan")
		return nil
	}
	_, err := c.scanner.ScanPharmacy(ctx, pharmacyID)
	if err != nil && errors.StatusCode(err) < http.StatusInternalServerError {
		// a redelivery would fail the same way
		c.logger.Warn().Err(err).Str("pharmacy_id", pharmacyID).Msg("alert rescan rejected, dropping event")
		return nil
	}
	return err
}

// touchesAlerts reports whether an edit can change which batches alert.
// Rate and name edits never do.
func touchesAlerts(fields []string) bool {
	for _, f := range fields {
		switch f {
		case "quantity", "expiry_date", "batch_number":
			return true
		}
	}
	return false
}
