package handler

import (
	"net/http"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// CreateSupplierRequest is the body of POST /suppliers
type CreateSupplierRequest struct {
	Name              string          `json:"name" validate:"required,max=255"`
	ContactPerson     *string         `json:"contact_person" validate:"omitempty,max=255"`
	Phone             *string         `json:"phone" validate:"omitempty,max=20"`
	Email             *string         `json:"email" validate:"omitempty,email"`
	Address           *string         `json:"address"`
	City              *string         `json:"city" validate:"omitempty,max=100"`
	GSTNumber         *string         `json:"gst_number" validate:"omitempty,max=15"`
	DrugLicenseNumber *string         `json:"drug_license_number" validate:"omitempty,max=50"`
	CreditDays        int             `json:"credit_days" validate:"gte=0"`
	CreditLimit       decimal.Decimal `json:"credit_limit"`
}

// RenameSupplierRequest is the body of PUT /suppliers
type RenameSupplierRequest struct {
	SupplierID string `json:"supplier_id" validate:"required,uuid"`
	NewName    string `json:"new_name" validate:"required,max=255"`
}

// CreateMedicineRequest is the body of POST /medicines
type CreateMedicineRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	GenericName  string  `json:"generic_name" validate:"max=255"`
	Manufacturer string  `json:"manufacturer" validate:"required,max=255"`
	Strength     *string `json:"strength" validate:"omitempty,max=50"`
	UnitType     string  `json:"unit_type" validate:"max=20"`
}

// SupplierHandler handles supplier endpoints
type SupplierHandler struct {
	catalog     Catalog
	maxPageSize int
	logger      *logger.Logger
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(catalog Catalog, maxPageSize int, log *logger.Logger) *SupplierHandler {
	return &SupplierHandler{
		catalog:     catalog,
		maxPageSize: maxPageSize,
		logger:      log.WithComponent("supplier-handler"),
	}
}

// List lists the pharmacy's active suppliers
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	page, limit := httputil.Pagination(r, h.maxPageSize, h.maxPageSize)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	suppliers, total, err := h.catalog.ListSuppliers(r.Context(), pharmacyID, search, page, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, suppliers, httputil.NewMeta(page, limit, total))
}

// Create registers a supplier
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateSupplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier, err := h.catalog.CreateSupplier(r.Context(), pharmacyID, service.CreateSupplierInput{
		Name:              req.Name,
		ContactPerson:     req.ContactPerson,
		Phone:             req.Phone,
		Email:             req.Email,
		Address:           req.Address,
		City:              req.City,
		GSTNumber:         req.GSTNumber,
		DrugLicenseNumber: req.DrugLicenseNumber,
		CreditDays:        req.CreditDays,
		CreditLimit:       req.CreditLimit,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, supplier)
}

// Rename renames a supplier
func (h *SupplierHandler) Rename(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req RenameSupplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.catalog.RenameSupplier(r.Context(), pharmacyID, req.SupplierID, req.NewName)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// MedicineHandler handles the shared medicine catalog
type MedicineHandler struct {
	catalog     Catalog
	maxPageSize int
	logger      *logger.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(catalog Catalog, maxPageSize int, log *logger.Logger) *MedicineHandler {
	return &MedicineHandler{
		catalog:     catalog,
		maxPageSize: maxPageSize,
		logger:      log.WithComponent("medicine-handler"),
	}
}

// List lists catalog medicines
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := pharmacyID(r); err != nil {
		httputil.Error(w, err)
		return
	}

	page, limit := httputil.Pagination(r, h.maxPageSize, h.maxPageSize)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	medicines, total, err := h.catalog.ListMedicines(r.Context(), search, page, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, medicines, httputil.NewMeta(page, limit, total))
}

// Create adds a medicine to the catalog
func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := pharmacyID(r); err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreateMedicineRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	medicine, err := h.catalog.CreateMedicine(r.Context(), service.CreateMedicineInput{
		Name:         req.Name,
		GenericName:  req.GenericName,
		Manufacturer: req.Manufacturer,
		Strength:     req.Strength,
		UnitType:     req.UnitType,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, medicine)
}
