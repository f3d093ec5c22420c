package events

import (
	"context"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// Source identifies this service on published events
const Source = "pharmacy-service"

// Sink is where events end up. *messaging.Publisher is the production sink.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// PharmacyEventPublisher publishes purchase, catalog and expiry events.
// A nil publisher drops every event, which is how the service runs without a broker.
type PharmacyEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewPharmacyEventPublisher creates a new publisher on the pharmacy exchange
func NewPharmacyEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PharmacyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, Source, log)
	if err != nil {
		return nil, err
	}

	return NewWithSink(publisher, log), nil
}

// NewWithSink creates a publisher on an arbitrary sink
func NewWithSink(sink Sink, log *logger.Logger) *PharmacyEventPublisher {
	return &PharmacyEventPublisher{
		sink:   sink,
		logger: log.WithComponent("events"),
	}
}

// send publishes under the HTTP request ID when the caller has no
// correlation of its own
func (p *PharmacyEventPublisher) send(ctx context.Context, eventType string, data interface{}) error {
	if messaging.CorrelationID(ctx) == "" {
		ctx = messaging.WithCorrelationID(ctx, httputil.GetRequestID(ctx))
	}
	return p.sink.Publish(ctx, eventType, data)
}

// PublishPurchaseCreated publishes a purchase created event
func (p *PharmacyEventPublisher) PublishPurchaseCreated(ctx context.Context, purchase *repository.Purchase, itemCount int) {
	if p == nil {
		return
	}

	data := messaging.PurchaseCreatedEvent{
		PharmacyID:    purchase.PharmacyID,
		PurchaseID:    purchase.ID,
		SupplierID:    purchase.SupplierID,
		InvoiceNumber: purchase.InvoiceNumber,
		ItemCount:     itemCount,
		TotalAmount:   purchase.TotalAmount,
	}

	if err := p.send(ctx, messaging.EventPurchaseCreated, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_id", purchase.ID).Msg("failed to publish purchase created event")
	}
}

// PublishItemUpdated publishes a purchase item updated event
func (p *PharmacyEventPublisher) PublishItemUpdated(ctx context.Context, pharmacyID string, item *repository.PurchaseItemDetail, fields []string, total decimal.Decimal) {
	if p == nil {
		return
	}

	data := messaging.PurchaseItemUpdatedEvent{
		PharmacyID:     pharmacyID,
		PurchaseID:     item.PurchaseID,
		PurchaseItemID: item.ID,
		MedicineID:     item.MedicineID,
		Fields:         fields,
		TotalAmount:    total,
	}

	if err := p.send(ctx, messaging.EventPurchaseItemUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_item_id", item.ID).Msg("failed to publish purchase item updated event")
	}
}

// PublishItemDeleted publishes a purchase item deleted event
func (p *PharmacyEventPublisher) PublishItemDeleted(ctx context.Context, data messaging.PurchaseItemDeletedEvent) {
	if p == nil {
		return
	}

	if err := p.send(ctx, messaging.EventPurchaseItemDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("purchase_item_id", data.PurchaseItemID).Msg("failed to publish purchase item deleted event")
	}
}

// PublishMedicineRemoved publishes a medicine removed event
func (p *PharmacyEventPublisher) PublishMedicineRemoved(ctx context.Context, medicineID, name string) {
	if p == nil {
		return
	}

	data := messaging.MedicineRemovedEvent{MedicineID: medicineID, Name: name}
	if err := p.send(ctx, messaging.EventMedicineRemoved, data); err != nil {
		p.logger.Error().Err(err).Str("medicine_id", medicineID).Msg("failed to publish medicine removed event")
	}
}

// PublishSupplierRenamed publishes a supplier renamed event
func (p *PharmacyEventPublisher) PublishSupplierRenamed(ctx context.Context, pharmacyID, supplierID, oldName, newName string) {
	if p == nil {
		return
	}

	data := messaging.SupplierRenamedEvent{
		PharmacyID: pharmacyID,
		SupplierID: supplierID,
		OldName:    oldName,
		NewName:    newName,
	}

	if err := p.send(ctx, messaging.EventSupplierRenamed, data); err != nil {
		p.logger.Error().Err(err).Str("supplier_id", supplierID).Msg("failed to publish supplier renamed event")
	}
}

// PublishExpiryAlertRaised publishes an expiry alert raised event
func (p *PharmacyEventPublisher) PublishExpiryAlertRaised(ctx context.Context, alert *repository.ExpiryAlert, medicineName string) {
	if p == nil {
		return
	}

	data := messaging.ExpiryAlertRaisedEvent{
		PharmacyID:   alert.PharmacyID,
		AlertID:      alert.ID,
		MedicineID:   alert.MedicineID,
		MedicineName: medicineName,
		BatchNumber:  alert.BatchNumber,
		ExpiryDate:   alert.ExpiryDate.Time,
		DaysToExpiry: alert.DaysToExpiry,
		Status:       alert.Status,
	}

	if err := p.send(ctx, messaging.EventExpiryAlertRaised, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish expiry alert raised event")
	}
}
