package service

import (
	"context"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/shopspring/decimal"
)

// Scoper runs work inside one transaction bound to a pharmacy.
// *database.DB is the production implementation.
type Scoper interface {
	WithPharmacy(ctx context.Context, pharmacyID string, fn func(context.Context) error) error
}

// MedicineStore persists the shared medicine catalog
type MedicineStore interface {
	Create(ctx context.Context, m *repository.Medicine) error
	GetByID(ctx context.Context, id string) (*repository.Medicine, error)
	FindByName(ctx context.Context, name string) (*repository.Medicine, error)
	List(ctx context.Context, search string, page, limit int) ([]*repository.Medicine, int64, error)
	Rename(ctx context.Context, id, name string) error
	DeleteOrphan(ctx context.Context, id string) (bool, error)
}

// SupplierStore persists suppliers of a pharmacy
type SupplierStore interface {
	Create(ctx context.Context, s *repository.Supplier) error
	GetByID(ctx context.Context, pharmacyID, id string) (*repository.Supplier, error)
	FindByName(ctx context.Context, pharmacyID, name string) (*repository.Supplier, error)
	List(ctx context.Context, pharmacyID, search string, page, limit int) ([]*repository.Supplier, int64, error)
	Rename(ctx context.Context, pharmacyID, id, name string) (*repository.Supplier, error)
}

// PurchaseStore persists purchase invoices
type PurchaseStore interface {
	Create(ctx context.Context, p *repository.Purchase) error
	GetByID(ctx context.Context, pharmacyID, id string) (*repository.Purchase, error)
	UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error
	Delete(ctx context.Context, id string) error
	ListLines(ctx context.Context, pharmacyID string, f repository.PurchaseLineFilter, page, limit int) ([]*repository.PurchaseLine, int64, error)
	Totals(ctx context.Context, pharmacyID string, today dates.Date) (*repository.PurchaseTotals, error)
	Recent(ctx context.Context, pharmacyID string, limit int) ([]*repository.RecentPurchase, error)
}

// PurchaseItemStore persists invoice lines
type PurchaseItemStore interface {
	Create(ctx context.Context, item *repository.PurchaseItem) error
	GetForPharmacy(ctx context.Context, pharmacyID, id string) (*repository.PurchaseItem, error)
	GetDetail(ctx context.Context, pharmacyID, id string) (*repository.PurchaseItemDetail, error)
	ListByPurchase(ctx context.Context, purchaseID string) ([]*repository.PurchaseItem, error)
	Update(ctx context.Context, id string, c repository.ItemChanges) error
	Delete(ctx context.Context, id string) error
	LatestSupplierNames(ctx context.Context, pharmacyID string, keys []repository.BatchKey) (map[repository.BatchKey]string, error)
}

// InventoryStore persists live stock per batch
type InventoryStore interface {
	Create(ctx context.Context, inv *repository.InventoryItem) error
	UpdateOwned(ctx context.Context, purchaseItemID string, c repository.OwnedChanges) (int64, error)
	DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) (int64, error)
	ListExpiring(ctx context.Context, pharmacyID string, f repository.ExpiryFilter) ([]*repository.ExpiryRow, error)
	ExpiryCounts(ctx context.Context, pharmacyID string, today dates.Date) (*repository.ExpiryCounts, error)
	Upcoming(ctx context.Context, pharmacyID string, today dates.Date, limit int) ([]*repository.ExpiryRow, error)
	Summary(ctx context.Context, pharmacyID, search string, threshold int, lowStockOnly bool, page, limit int) ([]*repository.StockSummary, int64, error)
	StockValue(ctx context.Context, pharmacyID string) (decimal.Decimal, error)
	CountMedicinesInStock(ctx context.Context, pharmacyID string) (int64, error)
	CountExpiringBy(ctx context.Context, pharmacyID string, through dates.Date) (int64, error)
}

// StockLedger persists stock transactions
type StockLedger interface {
	Create(ctx context.Context, t *repository.StockTransaction) error
	UpdateOwned(ctx context.Context, purchaseItemID string, c repository.OwnedChanges) (int64, error)
	DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) (int64, error)
	Recent(ctx context.Context, pharmacyID string, limit int) ([]*repository.StockActivity, error)
}

// AlertStore persists expiry alerts
type AlertStore interface {
	UpdateOwned(ctx context.Context, purchaseItemID string, c repository.AlertChanges) error
	DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) error
	Upsert(ctx context.Context, a *repository.ExpiryAlert) (bool, error)
	DeleteOutside(ctx context.Context, pharmacyID string, keep []string) (int64, error)
}

// ReferenceChecker answers whether a medicine is still in use
type ReferenceChecker interface {
	MedicineReferenced(ctx context.Context, medicineID string) bool
}

// PharmacyLister lists the pharmacies background jobs visit
type PharmacyLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// Stores bundles the persistence dependencies of the services
type Stores struct {
	Medicines  MedicineStore
	Suppliers  SupplierStore
	Purchases  PurchaseStore
	Items      PurchaseItemStore
	Inventory  InventoryStore
	Ledger     StockLedger
	Alerts     AlertStore
	References ReferenceChecker
	Pharmacies PharmacyLister
}
