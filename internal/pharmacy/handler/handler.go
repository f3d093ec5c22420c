package handler

import (
	"context"
	"net/http"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/scope"
)

// Page size used by list endpoints when the request names none
const defaultPageSize = 10

// inventoryPageSize is the /inventory default
const inventoryPageSize = 50

// Purchases records and lists invoices
type Purchases interface {
	Create(ctx context.Context, pharmacyID string, in service.CreatePurchaseInput) (*service.PurchaseWithItems, error)
	List(ctx context.Context, pharmacyID string, f repository.PurchaseLineFilter, page, limit int) ([]*repository.PurchaseLine, int64, error)
	Stats(ctx context.Context, pharmacyID string) (*service.PurchaseStats, error)
}

// Cascade edits and deletes purchase lines
type Cascade interface {
	UpdateItem(ctx context.Context, pharmacyID string, in service.UpdateItemInput) (*repository.PurchaseItemDetail, error)
	DeleteItem(ctx context.Context, pharmacyID, purchaseItemID string) (*service.DeleteItemResult, error)
}

// Expiry lists batches by expiry tier
type Expiry interface {
	List(ctx context.Context, pharmacyID string, q service.ExpiryQuery) (*service.ExpiryPage, error)
	Stats(ctx context.Context, pharmacyID string) (*service.ExpiryStats, error)
}

// AlertScanner refreshes the expiry alerts of one pharmacy
type AlertScanner interface {
	ScanPharmacy(ctx context.Context, pharmacyID string) (*service.ScanResult, error)
}

// Inventory reports stock on hand
type Inventory interface {
	Summary(ctx context.Context, pharmacyID string, q service.InventoryQuery) ([]*repository.StockSummary, int64, error)
}

// Catalog manages suppliers and medicines
type Catalog interface {
	ListSuppliers(ctx context.Context, pharmacyID, search string, page, limit int) ([]*repository.Supplier, int64, error)
	CreateSupplier(ctx context.Context, pharmacyID string, in service.CreateSupplierInput) (*repository.Supplier, error)
	RenameSupplier(ctx context.Context, pharmacyID, supplierID, newName string) (*service.SupplierRenameResult, error)
	ListMedicines(ctx context.Context, search string, page, limit int) ([]*repository.Medicine, int64, error)
	CreateMedicine(ctx context.Context, in service.CreateMedicineInput) (*repository.Medicine, error)
}

// Dashboard assembles the landing page
type Dashboard interface {
	Stats(ctx context.Context, pharmacyID string) (*service.DashboardStats, error)
}

// pharmacyID reads the scope set by httputil.PharmacyMiddleware
func pharmacyID(r *http.Request) (string, error) {
	id, err := scope.PharmacyID(r.Context())
	if err != nil {
		return "", errors.PharmacyRequired()
	}
	return id, nil
}
