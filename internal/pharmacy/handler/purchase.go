package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest is the body of POST /purchases
type CreatePurchaseRequest struct {
	SupplierName  string                      `json:"supplier_name" validate:"required,max=255"`
	InvoiceNumber string                      `json:"invoice_number" validate:"required,max=100"`
	Date          string                      `json:"date"`
	Items         []CreatePurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreatePurchaseItemRequest is one invoice line. ExpiryDate accepts
// YYYY-MM-DD or YYYY-MM.
type CreatePurchaseItemRequest struct {
	MedicineName string           `json:"medicine_name" validate:"required,max=255"`
	Pack         string           `json:"pack" validate:"max=50"`
	Quantity     int              `json:"quantity" validate:"gt=0"`
	ExpiryDate   string           `json:"expiry_date" validate:"required"`
	BatchNumber  string           `json:"batch_number" validate:"max=100"`
	MRP          *decimal.Decimal `json:"mrp"`
	Rate         decimal.Decimal  `json:"rate"`
	Amount       *decimal.Decimal `json:"amount"`
}

// UpdatePurchaseItemRequest is the body of PUT /purchases
type UpdatePurchaseItemRequest struct {
	PurchaseItemID string           `json:"purchase_item_id" validate:"required,uuid"`
	MedicineName   *string          `json:"medicine_name" validate:"omitempty,max=255"`
	Quantity       *int             `json:"quantity"`
	PurchaseRate   *decimal.Decimal `json:"purchase_rate"`
	MRP            *decimal.Decimal `json:"mrp"`
	BatchNumber    *string          `json:"batch_number" validate:"omitempty,max=100"`
	ExpiryDate     *string          `json:"expiry_date"`
}

// PurchaseHandler handles purchase endpoints
type PurchaseHandler struct {
	purchases   Purchases
	cascade     Cascade
	maxPageSize int
	logger      *logger.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(purchases Purchases, cascade Cascade, maxPageSize int, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchases:   purchases,
		cascade:     cascade,
		maxPageSize: maxPageSize,
		logger:      log.WithComponent("purchase-handler"),
	}
}

// List lists invoice lines
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	q := r.URL.Query()
	filter := repository.PurchaseLineFilter{
		MedicineName: strings.TrimSpace(q.Get("medicine_name")),
		SupplierName: strings.TrimSpace(q.Get("supplier_name")),
		BatchNumber:  strings.TrimSpace(q.Get("batch_number")),
	}
	if raw := q.Get("date"); raw != "" {
		d, err := dates.Parse(raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest(err.Error()))
			return
		}
		filter.PurchaseDate = &d
	}

	page, limit := httputil.Pagination(r, defaultPageSize, h.maxPageSize)

	lines, total, err := h.purchases.List(r.Context(), pharmacyID, filter, page, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, lines, httputil.NewMeta(page, limit, total))
}

// Create records an invoice with its lines
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req CreatePurchaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		httputil.Error(w, err)
		return
	}

	purchase, err := h.purchases.Create(r.Context(), pharmacyID, in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, purchase)
}

// Update edits one purchase line and its owned stock rows
func (h *PurchaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req UpdatePurchaseItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.UpdateItemInput{
		PurchaseItemID: req.PurchaseItemID,
		MedicineName:   req.MedicineName,
		Quantity:       req.Quantity,
		PurchaseRate:   req.PurchaseRate,
		MRP:            req.MRP,
		BatchNumber:    req.BatchNumber,
	}
	if req.ExpiryDate != nil {
		d, err := dates.ParseExpiry(*req.ExpiryDate)
		if err != nil {
			httputil.Error(w, errors.InvalidField("expiry_date", err.Error()))
			return
		}
		in.ExpiryDate = &d
	}

	item, err := h.cascade.UpdateItem(r.Context(), pharmacyID, in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Delete removes one purchase line identified by ?purchase_item_id=
func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	itemID := strings.TrimSpace(r.URL.Query().Get("purchase_item_id"))
	if itemID == "" {
		httputil.Error(w, errors.BadRequest("purchase_item_id query parameter is required"))
		return
	}
	parsed, err := uuid.Parse(itemID)
	if err != nil {
		httputil.Error(w, errors.InvalidField("purchase_item_id", "must be a valid UUID"))
		return
	}
	itemID = parsed.String()

	result, err := h.cascade.DeleteItem(r.Context(), pharmacyID, itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Stats returns the purchases dashboard
func (h *PurchaseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	stats, err := h.purchases.Stats(r.Context(), pharmacyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

func (req *CreatePurchaseRequest) toInput() (service.CreatePurchaseInput, error) {
	in := service.CreatePurchaseInput{
		SupplierName:  req.SupplierName,
		InvoiceNumber: req.InvoiceNumber,
		Items:         make([]service.CreatePurchaseItemInput, 0, len(req.Items)),
	}
	details := map[string]string{}

	if req.Date != "" {
		d, err := dates.Parse(req.Date)
		if err != nil {
			details["date"] = err.Error()
		} else {
			in.Date = &d
		}
	}

	for i, item := range req.Items {
		expiresOn, err := dates.ParseExpiry(item.ExpiryDate)
		if err != nil {
			details[fmt.Sprintf("items[%d].expiry_date", i)] = err.Error()
			continue
		}
		in.Items = append(in.Items, service.CreatePurchaseItemInput{
			MedicineName: item.MedicineName,
			Pack:         item.Pack,
			Quantity:     item.Quantity,
			ExpiryDate:   expiresOn,
			BatchNumber:  item.BatchNumber,
			MRP:          item.MRP,
			Rate:         item.Rate,
			Amount:       item.Amount,
		})
	}

	if len(details) > 0 {
		return in, errors.Validation(details)
	}
	return in, nil
}
