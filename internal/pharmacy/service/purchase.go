package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Defaults for rows created implicitly while recording a purchase
const (
	AutoSupplierContact  = "Auto-created"
	AutoManufacturer     = "Unknown"
	DefaultUnitType      = "strips"
	autoBatchPrefix      = "AUTO-"
	recentPurchasesLimit = 10
)

// CreatePurchaseInput records one supplier invoice
type CreatePurchaseInput struct {
	SupplierName  string
	InvoiceNumber string
	Date          *dates.Date
	Items         []CreatePurchaseItemInput
}

// CreatePurchaseItemInput is one line of a new invoice
type CreatePurchaseItemInput struct {
	MedicineName string
	Pack         string
	Quantity     int
	ExpiryDate   dates.Date
	BatchNumber  string
	MRP          *decimal.Decimal
	Rate         decimal.Decimal
	Amount       *decimal.Decimal
}

func (in CreatePurchaseInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.SupplierName) == "" {
		details["supplier_name"] = errors.MsgRequired
	}
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		details["invoice_number"] = errors.MsgRequired
	}
	if len(in.Items) == 0 {
		details["items"] = "At least one item is required"
	}
	for i, item := range in.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(item.MedicineName) == "" {
			details[prefix+"medicine_name"] = errors.MsgRequired
		}
		if item.Quantity <= 0 {
			details[prefix+"quantity"] = "Must be greater than 0"
		}
		if item.ExpiryDate.IsZero() {
			details[prefix+"expiry_date"] = errors.MsgRequired
		}
		if item.Rate.IsNegative() {
			details[prefix+"rate"] = "Must not be negative"
		}
		if item.MRP != nil && item.MRP.IsNegative() {
			details[prefix+"mrp"] = "Must not be negative"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// PurchaseWithItems is a recorded invoice with its lines
type PurchaseWithItems struct {
	*repository.Purchase
	SupplierName string                     `json:"supplier_name"`
	Items        []*repository.PurchaseItem `json:"items"`
}

// PurchaseStats is the purchases dashboard
type PurchaseStats struct {
	TodaysPurchases    decimal.Decimal              `json:"todaysPurchases"`
	ThisMonth          decimal.Decimal              `json:"thisMonth"`
	TotalEntries       int64                        `json:"totalEntries"`
	DifferentSuppliers int64                        `json:"differentSuppliers"`
	RecentPurchases    []*repository.RecentPurchase `json:"recentPurchases"`
}

// PurchaseService records and lists purchase invoices
type PurchaseService struct {
	db        Scoper
	stores    Stores
	totals    *TotalsRecalculator
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
	today     func() dates.Date
	now       func() time.Time
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(db Scoper, stores Stores, publisher *events.PharmacyEventPublisher, log *logger.Logger) *PurchaseService {
	return &PurchaseService{
		db:        db,
		stores:    stores,
		totals:    NewTotalsRecalculator(stores.Purchases, stores.Items),
		publisher: publisher,
		logger:    log.WithComponent("purchases"),
		today:     dates.Today,
		now:       time.Now,
	}
}

// Create records an invoice. Unknown suppliers and medicines are created on
// the fly and every line brings in its own stock and ledger rows.
func (s *PurchaseService) Create(ctx context.Context, pharmacyID string, in CreatePurchaseInput) (*PurchaseWithItems, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	out := &PurchaseWithItems{SupplierName: strings.TrimSpace(in.SupplierName)}

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		supplier, err := s.findOrCreateSupplier(ctx, pharmacyID, out.SupplierName)
		if err != nil {
			return err
		}

		date := s.today()
		if in.Date != nil && !in.Date.IsZero() {
			date = *in.Date
		}

		purchase := &repository.Purchase{
			PharmacyID:    pharmacyID,
			SupplierID:    supplier.ID,
			InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
			InvoiceDate:   date,
			PurchaseDate:  date,
			TotalAmount:   decimal.Zero,
			Status:        repository.PurchaseStatusReceived,
		}
		if err := s.stores.Purchases.Create(ctx, purchase); err != nil {
			return err
		}

		for _, line := range in.Items {
			item, err := s.addLine(ctx, pharmacyID, purchase.ID, line)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, item)
		}

		if purchase.TotalAmount, _, err = s.totals.Recalculate(ctx, purchase.ID); err != nil {
			return err
		}
		out.Purchase = purchase
		return nil
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to create purchase")
	}

	s.logger.Info().
		Str("pharmacy_id", pharmacyID).
		Str("purchase_id", out.ID).
		Int("items", len(out.Items)).
		Str("total", out.TotalAmount.StringFixed(2)).
		Msg("purchase recorded")

	s.publisher.PublishPurchaseCreated(ctx, out.Purchase, len(out.Items))
	return out, nil
}

func (s *PurchaseService) findOrCreateSupplier(ctx context.Context, pharmacyID, name string) (*repository.Supplier, error) {
	supplier, err := s.stores.Suppliers.FindByName(ctx, pharmacyID, name)
	if err != nil || supplier != nil {
		return supplier, err
	}

	contact := AutoSupplierContact
	supplier = &repository.Supplier{
		PharmacyID:    pharmacyID,
		Name:          name,
		ContactPerson: &contact,
		CreditLimit:   decimal.Zero,
		IsActive:      true,
	}
	if err := s.stores.Suppliers.Create(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *PurchaseService) findOrCreateMedicine(ctx context.Context, name string) (*repository.Medicine, error) {
	medicine, err := s.stores.Medicines.FindByName(ctx, name)
	if err != nil || medicine != nil {
		return medicine, err
	}

	generic := name
	medicine = &repository.Medicine{
		Name:         name,
		GenericName:  &generic,
		Manufacturer: AutoManufacturer,
		UnitType:     DefaultUnitType,
		IsActive:     true,
	}
	if err := s.stores.Medicines.Create(ctx, medicine); err != nil {
		return nil, err
	}
	return medicine, nil
}

func (s *PurchaseService) addLine(ctx context.Context, pharmacyID, purchaseID string, line CreatePurchaseItemInput) (*repository.PurchaseItem, error) {
	medicine, err := s.findOrCreateMedicine(ctx, strings.TrimSpace(line.MedicineName))
	if err != nil {
		return nil, err
	}

	batch := strings.TrimSpace(line.BatchNumber)
	if batch == "" {
		batch = fmt.Sprintf("%s%d", autoBatchPrefix, s.now().UnixMilli())
	}

	mrp := decimal.Zero
	if line.MRP != nil {
		mrp = *line.MRP
	}

	gross := line.Rate.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
	net := gross
	if line.Amount != nil && line.Amount.IsPositive() {
		net = *line.Amount
	}

	item := &repository.PurchaseItem{
		PurchaseID:     purchaseID,
		MedicineID:     medicine.ID,
		BatchNumber:    batch,
		ExpiryDate:     line.ExpiryDate,
		Quantity:       line.Quantity,
		MRP:            mrp,
		PurchaseRate:   line.Rate,
		GrossAmount:    gross,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		NetAmount:      net,
	}
	if err := s.stores.Items.Create(ctx, item); err != nil {
		return nil, err
	}

	owner := item.ID
	if err := s.stores.Inventory.Create(ctx, &repository.InventoryItem{
		PharmacyID:       pharmacyID,
		MedicineID:       medicine.ID,
		PurchaseItemID:   &owner,
		BatchNumber:      batch,
		ExpiryDate:       line.ExpiryDate,
		CurrentStock:     line.Quantity,
		LastPurchaseRate: line.Rate,
		CurrentMRP:       mrp,
		IsActive:         true,
	}); err != nil {
		return nil, err
	}

	if err := s.stores.Ledger.Create(ctx, &repository.StockTransaction{
		PharmacyID:      pharmacyID,
		MedicineID:      medicine.ID,
		PurchaseItemID:  &owner,
		TransactionType: repository.TransactionTypePurchase,
		BatchNumber:     batch,
		ExpiryDate:      line.ExpiryDate,
		QuantityIn:      line.Quantity,
		Rate:            line.Rate,
		Amount:          gross,
	}); err != nil {
		return nil, err
	}

	return item, nil
}

// List lists invoice lines, newest invoice first
func (s *PurchaseService) List(ctx context.Context, pharmacyID string, f repository.PurchaseLineFilter, page, limit int) ([]*repository.PurchaseLine, int64, error) {
	var (
		lines []*repository.PurchaseLine
		total int64
	)
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		var err error
		lines, total, err = s.stores.Purchases.ListLines(ctx, pharmacyID, f, page, limit)
		return err
	})
	if err != nil {
		return nil, 0, mapStoreError(s.logger, err, "failed to list purchases")
	}
	return lines, total, nil
}

// Stats summarises invoices that still carry lines
func (s *PurchaseService) Stats(ctx context.Context, pharmacyID string) (*PurchaseStats, error) {
	stats := &PurchaseStats{}
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		totals, err := s.stores.Purchases.Totals(ctx, pharmacyID, s.today())
		if err != nil {
			return err
		}
		stats.TodaysPurchases = totals.Today
		stats.ThisMonth = totals.ThisMonth
		stats.TotalEntries = totals.TotalEntries
		stats.DifferentSuppliers = totals.DifferentSuppliers

		stats.RecentPurchases, err = s.stores.Purchases.Recent(ctx, pharmacyID, recentPurchasesLimit)
		return err
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to load purchase stats")
	}
	return stats, nil
}
