package handler

import (
	"net/http"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// InventoryHandler handles stock on hand endpoints
type InventoryHandler struct {
	inventory   Inventory
	maxPageSize int
	logger      *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc Inventory, maxPageSize int, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventory:   svc,
		maxPageSize: maxPageSize,
		logger:      log.WithComponent("inventory-handler"),
	}
}

// List lists stock per medicine. ?lowStock=true keeps only medicines at or
// below the configured threshold.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	page, limit := httputil.Pagination(r, inventoryPageSize, h.maxPageSize)
	q := service.InventoryQuery{
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		LowStock: r.URL.Query().Get("lowStock") == "true",
		Page:     page,
		Limit:    limit,
	}

	rows, total, err := h.inventory.Summary(r.Context(), pharmacyID, q)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, rows, httputil.NewMeta(page, limit, total))
}
