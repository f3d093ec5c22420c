package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/testutil"
	"github.com/shopspring/decimal"
)

const testPharmacy = "11111111-1111-1111-1111-111111111111"

var errAlertsUnavailable = stderrors.New("expiry_alerts unavailable")

// memDB is an in-memory stand-in for the pharmacy tables
type memDB struct {
	mu         sync.Mutex
	seq        int
	clock      time.Time
	medicines  map[string]*repository.Medicine
	suppliers  map[string]*repository.Supplier
	purchases  map[string]*repository.Purchase
	items      map[string]*repository.PurchaseItem
	inventory  []*repository.InventoryItem
	ledger     []*repository.StockTransaction
	alerts     map[string]*repository.ExpiryAlert
	pharmacies []string

	// hiddenRefs marks medicines referenced by rows of another pharmacy
	hiddenRefs map[string]bool
	failAlerts bool
	scopes     int
}

func newMemDB() *memDB {
	return &memDB{
		clock:      time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC),
		medicines:  map[string]*repository.Medicine{},
		suppliers:  map[string]*repository.Supplier{},
		purchases:  map[string]*repository.Purchase{},
		items:      map[string]*repository.PurchaseItem{},
		alerts:     map[string]*repository.ExpiryAlert{},
		pharmacies: []string{testPharmacy},
		hiddenRefs: map[string]bool{},
	}
}

func (m *memDB) nextID(prefix string) (string, time.Time) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock.Add(time.Duration(m.seq) * time.Second)
}

func (m *memDB) stores() Stores {
	return Stores{
		Medicines:  memMedicines{m},
		Suppliers:  memSuppliers{m},
		Purchases:  memPurchases{m},
		Items:      memItems{m},
		Inventory:  memInventory{m},
		Ledger:     memLedger{m},
		Alerts:     memAlerts{m},
		References: memReferences{m},
		Pharmacies: memPharmacies{m},
	}
}

// WithPharmacy runs fn directly. Rollback is not modelled.
func (m *memDB) WithPharmacy(ctx context.Context, pharmacyID string, fn func(context.Context) error) error {
	if pharmacyID == "" {
		return errors.PharmacyRequired()
	}
	m.mu.Lock()
	m.scopes++
	m.mu.Unlock()
	return fn(ctx)
}

func (m *memDB) inventoryFor(purchaseItemID string) *repository.InventoryItem {
	for _, inv := range m.inventory {
		if inv.PurchaseItemID != nil && *inv.PurchaseItemID == purchaseItemID {
			return inv
		}
	}
	return nil
}

func (m *memDB) ledgerFor(purchaseItemID string) *repository.StockTransaction {
	for _, tx := range m.ledger {
		if tx.PurchaseItemID != nil && *tx.PurchaseItemID == purchaseItemID {
			return tx
		}
	}
	return nil
}

func newPublisher() (*events.PharmacyEventPublisher, *testutil.MockPublisher) {
	sink := testutil.NewMockPublisher()
	return events.NewWithSink(sink, logger.Nop()), sink
}

type memMedicines struct{ m *memDB }

func (s memMedicines) Create(_ context.Context, med *repository.Medicine) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	med.ID, med.CreatedAt = s.m.nextID("med")
	med.UpdatedAt = med.CreatedAt
	s.m.medicines[med.ID] = med
	return nil
}

func (s memMedicines) GetByID(_ context.Context, id string) (*repository.Medicine, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if med, ok := s.m.medicines[id]; ok {
		return med, nil
	}
	return nil, errors.NotFound("medicine")
}

func (s memMedicines) FindByName(_ context.Context, name string) (*repository.Medicine, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, med := range s.m.medicines {
		if strings.EqualFold(med.Name, name) {
			return med, nil
		}
	}
	return nil, nil
}

func (s memMedicines) List(_ context.Context, search string, page, limit int) ([]*repository.Medicine, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.Medicine
	for _, med := range s.m.medicines {
		if strings.Contains(strings.ToLower(med.Name), strings.ToLower(search)) {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (s memMedicines) Rename(_ context.Context, id, name string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	med, ok := s.m.medicines[id]
	if !ok {
		return errors.NotFound("medicine")
	}
	med.Name = name
	return nil
}

func (s memMedicines) DeleteOrphan(_ context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.hiddenRefs[id] {
		return false, nil
	}
	if _, ok := s.m.medicines[id]; !ok {
		return false, nil
	}
	delete(s.m.medicines, id)
	return true, nil
}

type memSuppliers struct{ m *memDB }

func (s memSuppliers) Create(_ context.Context, sup *repository.Supplier) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.suppliers {
		if existing.PharmacyID == sup.PharmacyID && strings.EqualFold(existing.Name, sup.Name) {
			return errors.Conflict("supplier already exists")
		}
	}
	sup.ID, sup.CreatedAt = s.m.nextID("sup")
	sup.UpdatedAt = sup.CreatedAt
	s.m.suppliers[sup.ID] = sup
	return nil
}

func (s memSuppliers) GetByID(_ context.Context, pharmacyID, id string) (*repository.Supplier, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if sup, ok := s.m.suppliers[id]; ok && sup.PharmacyID == pharmacyID {
		copied := *sup
		return &copied, nil
	}
	return nil, errors.NotFound("supplier")
}

func (s memSuppliers) FindByName(_ context.Context, pharmacyID, name string) (*repository.Supplier, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, sup := range s.m.suppliers {
		if sup.PharmacyID == pharmacyID && strings.EqualFold(sup.Name, name) {
			return sup, nil
		}
	}
	return nil, nil
}

func (s memSuppliers) List(_ context.Context, pharmacyID, search string, page, limit int) ([]*repository.Supplier, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.Supplier
	for _, sup := range s.m.suppliers {
		if sup.PharmacyID == pharmacyID && strings.Contains(strings.ToLower(sup.Name), strings.ToLower(search)) {
			out = append(out, sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (s memSuppliers) Rename(_ context.Context, pharmacyID, id, name string) (*repository.Supplier, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sup, ok := s.m.suppliers[id]
	if !ok || sup.PharmacyID != pharmacyID {
		return nil, errors.NotFound("supplier")
	}
	sup.Name = name
	return sup, nil
}

type memPurchases struct{ m *memDB }

func (s memPurchases) Create(_ context.Context, p *repository.Purchase) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p.ID, p.CreatedAt = s.m.nextID("pur")
	p.UpdatedAt = p.CreatedAt
	s.m.purchases[p.ID] = p
	return nil
}

func (s memPurchases) GetByID(_ context.Context, pharmacyID, id string) (*repository.Purchase, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if p, ok := s.m.purchases[id]; ok && p.PharmacyID == pharmacyID {
		return p, nil
	}
	return nil, errors.NotFound("purchase")
}

func (s memPurchases) UpdateTotal(_ context.Context, id string, total decimal.Decimal) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.purchases[id]
	if !ok {
		return errors.NotFound("purchase")
	}
	p.TotalAmount = total
	return nil
}

func (s memPurchases) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.purchases, id)
	return nil
}

func (s memPurchases) ListLines(_ context.Context, pharmacyID string, f repository.PurchaseLineFilter, page, limit int) ([]*repository.PurchaseLine, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.PurchaseLine
	for _, item := range s.m.items {
		p := s.m.purchases[item.PurchaseID]
		if p == nil || p.PharmacyID != pharmacyID {
			continue
		}
		out = append(out, &repository.PurchaseLine{
			ID:             p.ID + "-" + item.ID,
			PurchaseID:     p.ID,
			PurchaseItemID: item.ID,
			MedicineName:   s.m.medicines[item.MedicineID].Name,
			SupplierName:   s.m.suppliers[p.SupplierID].Name,
			BatchNumber:    item.BatchNumber,
			Quantity:       item.Quantity,
			PurchaseRate:   item.PurchaseRate,
			MRP:            item.MRP,
			ExpiryDate:     item.ExpiryDate,
			PurchaseDate:   p.PurchaseDate,
			InvoiceNumber:  p.InvoiceNumber,
			TotalAmount:    p.TotalAmount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s memPurchases) Totals(_ context.Context, pharmacyID string, today dates.Date) (*repository.PurchaseTotals, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	totals := &repository.PurchaseTotals{}
	suppliers := map[string]bool{}
	for _, p := range s.m.purchases {
		if p.PharmacyID != pharmacyID {
			continue
		}
		totals.TotalEntries++
		suppliers[p.SupplierID] = true
		if p.PurchaseDate.Equal(today) {
			totals.Today = totals.Today.Add(p.TotalAmount)
		}
		if !p.PurchaseDate.Before(today.StartOfMonth()) {
			totals.ThisMonth = totals.ThisMonth.Add(p.TotalAmount)
		}
	}
	totals.DifferentSuppliers = int64(len(suppliers))
	return totals, nil
}

func (s memPurchases) Recent(_ context.Context, pharmacyID string, limit int) ([]*repository.RecentPurchase, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.RecentPurchase
	for _, p := range s.m.purchases {
		if p.PharmacyID != pharmacyID {
			continue
		}
		out = append(out, &repository.RecentPurchase{
			ID:           p.ID,
			MedicineName: "Multiple Items",
			Supplier:     s.m.suppliers[p.SupplierID].Name,
			Total:        p.TotalAmount,
			PurchaseDate: p.PurchaseDate,
			CreatedAt:    p.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memItems struct{ m *memDB }

func (s memItems) Create(_ context.Context, item *repository.PurchaseItem) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item.ID, item.CreatedAt = s.m.nextID("item")
	item.UpdatedAt = item.CreatedAt
	s.m.items[item.ID] = item
	return nil
}

func (s memItems) GetForPharmacy(_ context.Context, pharmacyID, id string) (*repository.PurchaseItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.items[id]
	if !ok || s.m.purchases[item.PurchaseID].PharmacyID != pharmacyID {
		return nil, errors.NotFound("purchase item")
	}
	copied := *item
	return &copied, nil
}

func (s memItems) GetDetail(_ context.Context, pharmacyID, id string) (*repository.PurchaseItemDetail, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.items[id]
	if !ok {
		return nil, errors.NotFound("purchase item")
	}
	p := s.m.purchases[item.PurchaseID]
	return &repository.PurchaseItemDetail{
		PurchaseItem:  *item,
		MedicineName:  s.m.medicines[item.MedicineID].Name,
		PurchaseDate:  p.PurchaseDate,
		InvoiceNumber: p.InvoiceNumber,
		SupplierName:  s.m.suppliers[p.SupplierID].Name,
	}, nil
}

func (s memItems) ListByPurchase(_ context.Context, purchaseID string) ([]*repository.PurchaseItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.PurchaseItem
	for _, item := range s.m.items {
		if item.PurchaseID == purchaseID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memItems) Update(_ context.Context, id string, c repository.ItemChanges) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.items[id]
	if !ok {
		return errors.NotFound("purchase item")
	}
	if c.BatchNumber != nil {
		item.BatchNumber = *c.BatchNumber
	}
	if c.ExpiryDate != nil {
		item.ExpiryDate = *c.ExpiryDate
	}
	if c.Quantity != nil {
		item.Quantity = *c.Quantity
	}
	if c.PurchaseRate != nil {
		item.PurchaseRate = *c.PurchaseRate
	}
	if c.MRP != nil {
		item.MRP = *c.MRP
	}
	if c.GrossAmount != nil {
		item.GrossAmount = *c.GrossAmount
	}
	if c.NetAmount != nil {
		item.NetAmount = *c.NetAmount
	}
	return nil
}

func (s memItems) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.items[id]; !ok {
		return errors.NotFound("purchase item")
	}
	delete(s.m.items, id)
	return nil
}

func (s memItems) LatestSupplierNames(_ context.Context, pharmacyID string, keys []repository.BatchKey) (map[repository.BatchKey]string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := map[repository.BatchKey]string{}
	latest := map[repository.BatchKey]time.Time{}
	for _, k := range keys {
		for _, item := range s.m.items {
			p := s.m.purchases[item.PurchaseID]
			if p == nil || p.PharmacyID != pharmacyID {
				continue
			}
			if item.MedicineID != k.MedicineID || item.BatchNumber != k.BatchNumber || !item.ExpiryDate.Equal(k.ExpiryDate) {
				continue
			}
			if item.CreatedAt.After(latest[k]) {
				latest[k] = item.CreatedAt
				out[k] = s.m.suppliers[p.SupplierID].Name
			}
		}
	}
	return out, nil
}

type memInventory struct{ m *memDB }

func (s memInventory) Create(_ context.Context, inv *repository.InventoryItem) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv.ID, inv.CreatedAt = s.m.nextID("inv")
	inv.UpdatedAt = inv.CreatedAt
	s.m.inventory = append(s.m.inventory, inv)
	return nil
}

func (s memInventory) UpdateOwned(_ context.Context, purchaseItemID string, c repository.OwnedChanges) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	inv := s.m.inventoryFor(purchaseItemID)
	if inv == nil {
		return 0, nil
	}
	if c.BatchNumber != nil {
		inv.BatchNumber = *c.BatchNumber
	}
	if c.ExpiryDate != nil {
		inv.ExpiryDate = *c.ExpiryDate
	}
	if c.Quantity != nil {
		inv.CurrentStock = *c.Quantity
	}
	if c.Rate != nil {
		inv.LastPurchaseRate = *c.Rate
	}
	if c.MRP != nil {
		inv.CurrentMRP = *c.MRP
	}
	return 1, nil
}

func (s memInventory) DeleteByPurchaseItem(_ context.Context, purchaseItemID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	kept := s.m.inventory[:0]
	var n int64
	for _, inv := range s.m.inventory {
		if inv.PurchaseItemID != nil && *inv.PurchaseItemID == purchaseItemID {
			n++
			continue
		}
		kept = append(kept, inv)
	}
	s.m.inventory = kept
	return n, nil
}

func (s memInventory) ListExpiring(_ context.Context, pharmacyID string, f repository.ExpiryFilter) ([]*repository.ExpiryRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.ExpiryRow
	for _, inv := range s.m.inventory {
		if inv.PharmacyID != pharmacyID || !inv.IsActive || inv.CurrentStock <= 0 {
			continue
		}
		name := s.m.medicines[inv.MedicineID].Name
		if f.MedicineName != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.MedicineName)) {
			continue
		}
		if f.BatchNumber != "" && !strings.Contains(strings.ToLower(inv.BatchNumber), strings.ToLower(f.BatchNumber)) {
			continue
		}
		if f.After != nil && !inv.ExpiryDate.After(*f.After) {
			continue
		}
		if f.From != nil && inv.ExpiryDate.Before(*f.From) {
			continue
		}
		if f.Through != nil && inv.ExpiryDate.After(*f.Through) {
			continue
		}
		out = append(out, &repository.ExpiryRow{
			ID:             inv.ID,
			MedicineID:     inv.MedicineID,
			PurchaseItemID: inv.PurchaseItemID,
			MedicineName:   name,
			BatchNumber:    inv.BatchNumber,
			ExpiryDate:     inv.ExpiryDate,
			CurrentStock:   inv.CurrentStock,
			Rate:           inv.LastPurchaseRate,
			MRP:            inv.CurrentMRP,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		if out[i].MedicineName != out[j].MedicineName {
			return out[i].MedicineName < out[j].MedicineName
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return out, nil
}

func (s memInventory) ExpiryCounts(ctx context.Context, pharmacyID string, today dates.Date) (*repository.ExpiryCounts, error) {
	rows, err := s.ListExpiring(ctx, pharmacyID, repository.ExpiryFilter{})
	if err != nil {
		return nil, err
	}
	counts := &repository.ExpiryCounts{}
	for _, row := range rows {
		days := today.DaysUntil(row.ExpiryDate)
		if days >= -7 && days < 0 {
			counts.ExpiredThisWeek++
		}
		if days >= 0 && days <= 30 {
			counts.ExpiringIn30Days++
		}
		if days >= 0 && days <= 90 {
			counts.ExpiringIn90Days++
			counts.ValueAtRisk = counts.ValueAtRisk.Add(row.Rate.Mul(decimal.NewFromInt(int64(row.CurrentStock))))
		}
	}
	return counts, nil
}

func (s memInventory) Upcoming(ctx context.Context, pharmacyID string, today dates.Date, limit int) ([]*repository.ExpiryRow, error) {
	rows, err := s.ListExpiring(ctx, pharmacyID, repository.ExpiryFilter{From: &today})
	if err != nil {
		return nil, err
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s memInventory) Summary(_ context.Context, pharmacyID, search string, threshold int, lowStockOnly bool, page, limit int) ([]*repository.StockSummary, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	byMedicine := map[string]*repository.StockSummary{}
	for _, inv := range s.m.inventory {
		if inv.PharmacyID != pharmacyID || !inv.IsActive {
			continue
		}
		sum, ok := byMedicine[inv.MedicineID]
		if !ok {
			sum = &repository.StockSummary{MedicineID: inv.MedicineID, MedicineName: s.m.medicines[inv.MedicineID].Name}
			byMedicine[inv.MedicineID] = sum
		}
		sum.TotalStock += int64(inv.CurrentStock)
		sum.BatchCount++
	}
	var out []*repository.StockSummary
	for _, sum := range byMedicine {
		sum.LowStock = sum.TotalStock <= int64(threshold)
		if lowStockOnly && !sum.LowStock {
			continue
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicineName < out[j].MedicineName })
	return out, int64(len(out)), nil
}

func (s memInventory) StockValue(_ context.Context, pharmacyID string) (decimal.Decimal, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	total := decimal.Zero
	for _, inv := range s.m.inventory {
		if inv.PharmacyID == pharmacyID && inv.IsActive {
			total = total.Add(inv.LastPurchaseRate.Mul(decimal.NewFromInt(int64(inv.CurrentStock))))
		}
	}
	return total, nil
}

func (s memInventory) CountMedicinesInStock(_ context.Context, pharmacyID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	seen := map[string]bool{}
	for _, inv := range s.m.inventory {
		if inv.PharmacyID == pharmacyID && inv.IsActive && inv.CurrentStock > 0 {
			seen[inv.MedicineID] = true
		}
	}
	return int64(len(seen)), nil
}

func (s memInventory) CountExpiringBy(ctx context.Context, pharmacyID string, through dates.Date) (int64, error) {
	rows, err := s.ListExpiring(ctx, pharmacyID, repository.ExpiryFilter{Through: &through})
	return int64(len(rows)), err
}

type memLedger struct{ m *memDB }

func (s memLedger) Create(_ context.Context, tx *repository.StockTransaction) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tx.ID, tx.CreatedAt = s.m.nextID("tx")
	s.m.ledger = append(s.m.ledger, tx)
	return nil
}

func (s memLedger) UpdateOwned(_ context.Context, purchaseItemID string, c repository.OwnedChanges) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tx := s.m.ledgerFor(purchaseItemID)
	if tx == nil {
		return 0, nil
	}
	if c.BatchNumber != nil {
		tx.BatchNumber = *c.BatchNumber
	}
	if c.ExpiryDate != nil {
		tx.ExpiryDate = *c.ExpiryDate
	}
	if c.Quantity != nil {
		tx.QuantityIn = *c.Quantity
	}
	if c.Rate != nil {
		tx.Rate = *c.Rate
	}
	if c.Amount != nil {
		tx.Amount = *c.Amount
	}
	return 1, nil
}

func (s memLedger) DeleteByPurchaseItem(_ context.Context, purchaseItemID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	kept := s.m.ledger[:0]
	var n int64
	for _, tx := range s.m.ledger {
		if tx.PurchaseItemID != nil && *tx.PurchaseItemID == purchaseItemID {
			n++
			continue
		}
		kept = append(kept, tx)
	}
	s.m.ledger = kept
	return n, nil
}

func (s memLedger) Recent(_ context.Context, pharmacyID string, limit int) ([]*repository.StockActivity, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*repository.StockActivity
	for i := len(s.m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		tx := s.m.ledger[i]
		if tx.PharmacyID != pharmacyID {
			continue
		}
		out = append(out, &repository.StockActivity{
			ID:              tx.ID,
			MedicineName:    s.m.medicines[tx.MedicineID].Name,
			TransactionType: tx.TransactionType,
			Quantity:        tx.QuantityIn,
			CreatedAt:       tx.CreatedAt,
		})
	}
	return out, nil
}

type memAlerts struct{ m *memDB }

func (s memAlerts) UpdateOwned(_ context.Context, purchaseItemID string, c repository.AlertChanges) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failAlerts {
		return errAlertsUnavailable
	}
	a, ok := s.m.alerts[purchaseItemID]
	if !ok {
		return nil
	}
	if c.BatchNumber != nil {
		a.BatchNumber = *c.BatchNumber
	}
	if c.ExpiryDate != nil {
		a.ExpiryDate = *c.ExpiryDate
	}
	if c.DaysToExpiry != nil {
		a.DaysToExpiry = *c.DaysToExpiry
	}
	if c.Status != nil {
		a.Status = *c.Status
	}
	return nil
}

func (s memAlerts) DeleteByPurchaseItem(_ context.Context, purchaseItemID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failAlerts {
		return errAlertsUnavailable
	}
	delete(s.m.alerts, purchaseItemID)
	return nil
}

func (s memAlerts) Upsert(_ context.Context, a *repository.ExpiryAlert) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if existing, ok := s.m.alerts[a.PurchaseItemID]; ok {
		a.ID = existing.ID
		s.m.alerts[a.PurchaseItemID] = a
		return false, nil
	}
	a.ID, a.CreatedAt = s.m.nextID("alert")
	s.m.alerts[a.PurchaseItemID] = a
	return true, nil
}

func (s memAlerts) DeleteOutside(_ context.Context, pharmacyID string, keep []string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	kept := map[string]bool{}
	for _, id := range keep {
		kept[id] = true
	}
	var n int64
	for id, a := range s.m.alerts {
		if a.PharmacyID == pharmacyID && !kept[id] {
			delete(s.m.alerts, id)
			n++
		}
	}
	return n, nil
}

type memReferences struct{ m *memDB }

func (s memReferences) MedicineReferenced(_ context.Context, medicineID string) bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, item := range s.m.items {
		if item.MedicineID == medicineID {
			return true
		}
	}
	for _, inv := range s.m.inventory {
		if inv.MedicineID == medicineID {
			return true
		}
	}
	for _, tx := range s.m.ledger {
		if tx.MedicineID == medicineID {
			return true
		}
	}
	return false
}

type memPharmacies struct{ m *memDB }

func (s memPharmacies) ListActiveIDs(context.Context) ([]string, error) {
	return s.m.pharmacies, nil
}
