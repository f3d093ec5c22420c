package handler

import (
	"net/http"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/expiry"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// ExpiryHandler handles the expiry tracker endpoints
type ExpiryHandler struct {
	expiry  Expiry
	scanner AlertScanner
	logger  *logger.Logger
}

// NewExpiryHandler creates a new expiry handler
func NewExpiryHandler(svc Expiry, scanner AlertScanner, log *logger.Logger) *ExpiryHandler {
	return &ExpiryHandler{
		expiry:  svc,
		scanner: scanner,
		logger:  log.WithComponent("expiry-handler"),
	}
}

// Get serves both the expiry list and, with ?type=stats, the expiry dashboard
func (h *ExpiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if r.URL.Query().Get("type") == "stats" {
		stats, err := h.expiry.Stats(r.Context(), pharmacyID)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, stats)
		return
	}

	q, err := parseExpiryQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	page, err := h.expiry.List(r.Context(), pharmacyID, q)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, page)
}

// Scan refreshes the expiry alerts of the requesting pharmacy
func (h *ExpiryHandler) Scan(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.scanner.ScanPharmacy(r.Context(), pharmacyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// parseExpiryQuery leaves paging defaults and caps to the service
func parseExpiryQuery(r *http.Request) (service.ExpiryQuery, error) {
	v := r.URL.Query()
	q := service.ExpiryQuery{
		MedicineName: strings.TrimSpace(v.Get("medicine_name")),
		BatchNumber:  strings.TrimSpace(v.Get("batch_number")),
		SupplierName: strings.TrimSpace(v.Get("supplier_name")),
		Days:         httputil.QueryInt(r, "days", 0),
		Page:         httputil.QueryInt(r, "page", 1),
		Limit:        httputil.QueryInt(r, "limit", 0),
	}

	details := map[string]string{}

	if raw := strings.TrimSpace(v.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		status, ok := expiry.ParseStatus(raw)
		if !ok {
			details["status"] = "must be one of: EXPIRED, CRITICAL, WARNING, ALERT, NORMAL"
		}
		q.Status = status
	}
	for key, dst := range map[string]**dates.Date{"start_date": &q.StartDate, "end_date": &q.EndDate} {
		raw := v.Get(key)
		if raw == "" {
			continue
		}
		d, err := dates.Parse(raw)
		if err != nil {
			details[key] = err.Error()
			continue
		}
		*dst = &d
	}

	if len(details) > 0 {
		return q, errors.Validation(details)
	}
	return q, nil
}
