package handler

import (
	"net/http"

	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboard Dashboard
	logger    *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc Dashboard, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: svc,
		logger:    log.WithComponent("dashboard-handler"),
	}
}

// Stats returns the landing page summary
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	pharmacyID, err := pharmacyID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), pharmacyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
