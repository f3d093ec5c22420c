package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	// Purchase events
	EventPurchaseCreated     = "purchase.created"
	EventPurchaseItemUpdated = "purchase.item.updated"
	EventPurchaseItemDeleted = "purchase.item.deleted"

	// Catalog events
	EventMedicineRemoved = "catalog.medicine.removed"
	EventSupplierRenamed = "catalog.supplier.renamed"

	// Expiry events
	EventExpiryAlertRaised = "expiry.alert.raised"
)

// Exchange names
const (
	ExchangePharmacyEvents = "pharmacy.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Purchase Events

// PurchaseCreatedEvent is published when a purchase invoice is recorded
type PurchaseCreatedEvent struct {
	PharmacyID    string          `json:"pharmacy_id"`
	PurchaseID    string          `json:"purchase_id"`
	SupplierID    string          `json:"supplier_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ItemCount     int             `json:"item_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// PurchaseItemUpdatedEvent is published after a line item edit has been
// propagated to stock and ledger rows
type PurchaseItemUpdatedEvent struct {
	PharmacyID     string          `json:"pharmacy_id"`
	PurchaseID     string          `json:"purchase_id"`
	PurchaseItemID string          `json:"purchase_item_id"`
	MedicineID     string          `json:"medicine_id"`
	Fields         []string        `json:"fields"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// PurchaseItemDeletedEvent is published after a line item and the rows it
// owns have been removed
type PurchaseItemDeletedEvent struct {
	PharmacyID      string `json:"pharmacy_id"`
	PurchaseID      string `json:"purchase_id"`
	PurchaseItemID  string `json:"purchase_item_id"`
	MedicineID      string `json:"medicine_id"`
	PurchaseDeleted bool   `json:"purchase_deleted"`
	MedicineRemoved bool   `json:"medicine_removed"`
}

// Catalog Events

// MedicineRemovedEvent is published when an unreferenced medicine is deleted
type MedicineRemovedEvent struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
}

// SupplierRenamedEvent is published when a supplier changes its name
type SupplierRenamedEvent struct {
	PharmacyID string `json:"pharmacy_id"`
	SupplierID string `json:"supplier_id"`
	OldName    string `json:"old_name"`
	NewName    string `json:"new_name"`
}

// Expiry Events

// ExpiryAlertRaisedEvent is published when a batch enters an alerting tier
type ExpiryAlertRaisedEvent struct {
	PharmacyID   string    `json:"pharmacy_id"`
	AlertID      string    `json:"alert_id"`
	MedicineID   string    `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	BatchNumber  string    `json:"batch_number"`
	ExpiryDate   time.Time `json:"expiry_date"`
	DaysToExpiry int       `json:"days_to_expiry"`
	Status       string    `json:"status"`
}
