package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
)

// Handlers groups the pharmacy API
type Handlers struct {
	Purchases *PurchaseHandler
	Expiry    *ExpiryHandler
	Inventory *InventoryHandler
	Suppliers *SupplierHandler
	Medicines *MedicineHandler
	Dashboard *DashboardHandler
}

// Mount registers the API under /api/v1. Every route is pharmacy scoped;
// requests without X-Pharmacy-ID fall back to defaultPharmacyID.
func (h *Handlers) Mount(r chi.Router, defaultPharmacyID string) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.PharmacyMiddleware(defaultPharmacyID))

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.Purchases.List)
			r.Post("/", h.Purchases.Create)
			r.Put("/", h.Purchases.Update)
			r.Delete("/", h.Purchases.Delete)
			r.Get("/stats", h.Purchases.Stats)
		})

		r.Route("/expiry", func(r chi.Router) {
			r.Get("/", h.Expiry.Get)
			r.Post("/alerts/scan", h.Expiry.Scan)
		})

		r.Get("/inventory", h.Inventory.List)

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.Suppliers.List)
			r.Post("/", h.Suppliers.Create)
			r.Put("/", h.Suppliers.Rename)
		})

		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.Medicines.List)
			r.Post("/", h.Medicines.Create)
		})

		r.Get("/dashboard/stats", h.Dashboard.Stats)
	})
}
