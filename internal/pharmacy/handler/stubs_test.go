package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/handler"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/service"
	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/testutil"
)

const (
	testPharmacy = "22222222-2222-2222-2222-222222222222"
	testItemID   = "33333333-3333-3333-3333-333333333333"
)

type stubPurchases struct {
	pharmacyID string
	created    *service.CreatePurchaseInput
	filter     repository.PurchaseLineFilter
	page       int
	limit      int
	err        error
}

func (s *stubPurchases) Create(_ context.Context, pharmacyID string, in service.CreatePurchaseInput) (*service.PurchaseWithItems, error) {
	s.pharmacyID = pharmacyID
	s.created = &in
	if s.err != nil {
		return nil, s.err
	}
	return &service.PurchaseWithItems{
		Purchase:     &repository.Purchase{ID: "p-1", PharmacyID: pharmacyID, InvoiceNumber: in.InvoiceNumber},
		SupplierName: in.SupplierName,
	}, nil
}

func (s *stubPurchases) List(_ context.Context, pharmacyID string, f repository.PurchaseLineFilter, page, limit int) ([]*repository.PurchaseLine, int64, error) {
	s.pharmacyID = pharmacyID
	s.filter, s.page, s.limit = f, page, limit
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*repository.PurchaseLine{{ID: "line-1", MedicineName: "Paracetamol"}}, 21, nil
}

func (s *stubPurchases) Stats(_ context.Context, pharmacyID string) (*service.PurchaseStats, error) {
	s.pharmacyID = pharmacyID
	if s.err != nil {
		return nil, s.err
	}
	return &service.PurchaseStats{TotalEntries: 3}, nil
}

type stubCascade struct {
	updated   *service.UpdateItemInput
	deletedID string
	err       error
}

func (s *stubCascade) UpdateItem(_ context.Context, _ string, in service.UpdateItemInput) (*repository.PurchaseItemDetail, error) {
	s.updated = &in
	if s.err != nil {
		return nil, s.err
	}
	return &repository.PurchaseItemDetail{MedicineName: "Paracetamol"}, nil
}

func (s *stubCascade) DeleteItem(_ context.Context, _ string, purchaseItemID string) (*service.DeleteItemResult, error) {
	s.deletedID = purchaseItemID
	if s.err != nil {
		return nil, s.err
	}
	return &service.DeleteItemResult{PurchaseItemID: purchaseItemID, PurchaseDeleted: true}, nil
}

type stubExpiry struct {
	query       *service.ExpiryQuery
	statsCalled bool
}

func (s *stubExpiry) List(_ context.Context, _ string, q service.ExpiryQuery) (*service.ExpiryPage, error) {
	s.query = &q
	return &service.ExpiryPage{Page: 1, Limit: 50}, nil
}

func (s *stubExpiry) Stats(context.Context, string) (*service.ExpiryStats, error) {
	s.statsCalled = true
	return &service.ExpiryStats{ExpiringIn30Days: 2}, nil
}

type stubScanner struct{ pharmacyID string }

func (s *stubScanner) ScanPharmacy(_ context.Context, pharmacyID string) (*service.ScanResult, error) {
	s.pharmacyID = pharmacyID
	return &service.ScanResult{PharmacyID: pharmacyID, Scanned: 4, Raised: 1}, nil
}

type stubInventory struct{ query *service.InventoryQuery }

func (s *stubInventory) Summary(_ context.Context, _ string, q service.InventoryQuery) ([]*repository.StockSummary, int64, error) {
	s.query = &q
	return []*repository.StockSummary{{MedicineName: "Amoxicillin"}}, 1, nil
}

type stubCatalog struct {
	supplier  *service.CreateSupplierInput
	renamedID string
	newName   string
	medicine  *service.CreateMedicineInput
	search    string
}

func (s *stubCatalog) ListSuppliers(_ context.Context, _ string, search string, _, _ int) ([]*repository.Supplier, int64, error) {
	s.search = search
	return []*repository.Supplier{{Name: "MedPlus"}}, 1, nil
}

func (s *stubCatalog) CreateSupplier(_ context.Context, pharmacyID string, in service.CreateSupplierInput) (*repository.Supplier, error) {
	s.supplier = &in
	return &repository.Supplier{ID: "s-1", PharmacyID: pharmacyID, Name: in.Name}, nil
}

func (s *stubCatalog) RenameSupplier(_ context.Context, _ string, supplierID, newName string) (*service.SupplierRenameResult, error) {
	s.renamedID, s.newName = supplierID, newName
	return &service.SupplierRenameResult{
		Supplier: &repository.Supplier{ID: supplierID, Name: newName},
		Message:  "renamed",
	}, nil
}

func (s *stubCatalog) ListMedicines(_ context.Context, search string, _, _ int) ([]*repository.Medicine, int64, error) {
	s.search = search
	return []*repository.Medicine{{Name: "Paracetamol"}}, 1, nil
}

func (s *stubCatalog) CreateMedicine(_ context.Context, in service.CreateMedicineInput) (*repository.Medicine, error) {
	s.medicine = &in
	return &repository.Medicine{ID: "m-1", Name: in.Name, Manufacturer: in.Manufacturer}, nil
}

type stubDashboard struct{ pharmacyID string }

func (s *stubDashboard) Stats(_ context.Context, pharmacyID string) (*service.DashboardStats, error) {
	s.pharmacyID = pharmacyID
	return &service.DashboardStats{TotalMedicines: 7}, nil
}

type stubs struct {
	purchases *stubPurchases
	cascade   *stubCascade
	expiry    *stubExpiry
	scanner   *stubScanner
	inventory *stubInventory
	catalog   *stubCatalog
	dashboard *stubDashboard
}

func newStubs() *stubs {
	return &stubs{
		purchases: &stubPurchases{},
		cascade:   &stubCascade{},
		expiry:    &stubExpiry{},
		scanner:   &stubScanner{},
		inventory: &stubInventory{},
		catalog:   &stubCatalog{},
		dashboard: &stubDashboard{},
	}
}

// router mounts the full API over the stubs
func (s *stubs) router(defaultPharmacyID string) http.Handler {
	log := logger.Nop()
	h := &handler.Handlers{
		Purchases: handler.NewPurchaseHandler(s.purchases, s.cascade, 50, log),
		Expiry:    handler.NewExpiryHandler(s.expiry, s.scanner, log),
		Inventory: handler.NewInventoryHandler(s.inventory, 50, log),
		Suppliers: handler.NewSupplierHandler(s.catalog, 50, log),
		Medicines: handler.NewMedicineHandler(s.catalog, 50, log),
		Dashboard: handler.NewDashboardHandler(s.dashboard, log),
	}
	r := chi.NewRouter()
	h.Mount(r, defaultPharmacyID)
	return r
}

func serve(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	req := testutil.WithPharmacyHeader(testutil.NewHTTPRequest(method, path, body), testPharmacy)
	return do(t, h, req)
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	rr := testutil.ExecuteRequest(h, req)

	var resp httputil.Response
	testutil.ParseJSONBody(t, rr, &resp)
	return rr, resp
}
