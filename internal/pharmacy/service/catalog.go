package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// CreateSupplierInput registers a supplier
type CreateSupplierInput struct {
	Name              string
	ContactPerson     *string
	Phone             *string
	Email             *string
	Address           *string
	City              *string
	GSTNumber         *string
	DrugLicenseNumber *string
	CreditDays        int
	CreditLimit       decimal.Decimal
}

// CreateMedicineInput registers a catalog medicine
type CreateMedicineInput struct {
	Name         string
	GenericName  string
	Manufacturer string
	Strength     *string
	UnitType     string
}

// SupplierRenameResult is a renamed supplier with a human readable summary
type SupplierRenameResult struct {
	Supplier *repository.Supplier `json:"supplier"`
	Message  string               `json:"message"`
}

// CatalogService manages suppliers and the medicine catalog
type CatalogService struct {
	db        Scoper
	stores    Stores
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db Scoper, stores Stores, publisher *events.PharmacyEventPublisher, log *logger.Logger) *CatalogService {
	return &CatalogService{
		db:        db,
		stores:    stores,
		publisher: publisher,
		logger:    log.WithComponent("catalog"),
	}
}

// ListSuppliers lists active suppliers by name
func (s *CatalogService) ListSuppliers(ctx context.Context, pharmacyID, search string, page, limit int) ([]*repository.Supplier, int64, error) {
	var (
		suppliers []*repository.Supplier
		total     int64
	)
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		var err error
		suppliers, total, err = s.stores.Suppliers.List(ctx, pharmacyID, search, page, limit)
		return err
	})
	if err != nil {
		return nil, 0, mapStoreError(s.logger, err, "failed to list suppliers")
	}
	return suppliers, total, nil
}

// CreateSupplier registers a supplier. Names are unique per pharmacy.
func (s *CatalogService) CreateSupplier(ctx context.Context, pharmacyID string, in CreateSupplierInput) (*repository.Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.InvalidField("name", errors.MsgRequired)
	}
	if in.CreditDays < 0 || in.CreditLimit.IsNegative() {
		return nil, errors.BadRequest("credit terms must not be negative")
	}

	supplier := &repository.Supplier{
		PharmacyID:        pharmacyID,
		Name:              name,
		ContactPerson:     in.ContactPerson,
		Phone:             in.Phone,
		Email:             in.Email,
		Address:           in.Address,
		City:              in.City,
		GSTNumber:         in.GSTNumber,
		DrugLicenseNumber: in.DrugLicenseNumber,
		CreditDays:        in.CreditDays,
		CreditLimit:       in.CreditLimit,
		IsActive:          true,
	}

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		return s.stores.Suppliers.Create(ctx, supplier)
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to create supplier")
	}

	s.logger.Info().Str("pharmacy_id", pharmacyID).Str("supplier_id", supplier.ID).Msg("supplier created")
	return supplier, nil
}

// RenameSupplier changes a supplier name. Purchases reference the supplier
// by id so they show the new name right away.
func (s *CatalogService) RenameSupplier(ctx context.Context, pharmacyID, supplierID, newName string) (*SupplierRenameResult, error) {
	newName = strings.TrimSpace(newName)
	if supplierID == "" || newName == "" {
		return nil, errors.BadRequest("supplier_id and new_name are required")
	}

	var oldName string
	var supplier *repository.Supplier
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		current, err := s.stores.Suppliers.GetByID(ctx, pharmacyID, supplierID)
		if err != nil {
			return err
		}
		oldName = current.Name

		supplier, err = s.stores.Suppliers.Rename(ctx, pharmacyID, supplierID, newName)
		return err
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to rename supplier")
	}

	s.publisher.PublishSupplierRenamed(ctx, pharmacyID, supplierID, oldName, newName)
	return &SupplierRenameResult{
		Supplier: supplier,
		Message:  fmt.Sprintf(`Supplier name updated from "%s" to "%s"`, oldName, newName),
	}, nil
}

// ListMedicines lists the shared catalog by name
func (s *CatalogService) ListMedicines(ctx context.Context, search string, page, limit int) ([]*repository.Medicine, int64, error) {
	medicines, total, err := s.stores.Medicines.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, mapStoreError(s.logger, err, "failed to list medicines")
	}
	return medicines, total, nil
}

// CreateMedicine adds a medicine to the shared catalog
func (s *CatalogService) CreateMedicine(ctx context.Context, in CreateMedicineInput) (*repository.Medicine, error) {
	details := map[string]string{}
	name := strings.TrimSpace(in.Name)
	manufacturer := strings.TrimSpace(in.Manufacturer)
	if name == "" {
		details["name"] = errors.MsgRequired
	}
	if manufacturer == "" {
		details["manufacturer"] = errors.MsgRequired
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	generic := strings.TrimSpace(in.GenericName)
	if generic == "" {
		generic = name
	}
	unitType := strings.TrimSpace(in.UnitType)
	if unitType == "" {
		unitType = DefaultUnitType
	}

	medicine := &repository.Medicine{
		Name:         name,
		GenericName:  &generic,
		Manufacturer: manufacturer,
		Strength:     in.Strength,
		UnitType:     unitType,
		IsActive:     true,
	}
	if err := s.stores.Medicines.Create(ctx, medicine); err != nil {
		return nil, mapStoreError(s.logger, err, "failed to create medicine")
	}
	return medicine, nil
}
