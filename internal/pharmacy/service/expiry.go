package service

import (
	"context"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/expiry"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	recentExpiriesLimit = 10
	defaultMaxPageSize  = 50
)

// ExpiryQuery filters the expiry list. Zero values mean "not set".
type ExpiryQuery struct {
	MedicineName string
	BatchNumber  string
	SupplierName string
	Status       expiry.Status
	StartDate    *dates.Date
	EndDate      *dates.Date
	Days         int
	Page         int
	Limit        int
}

func (q ExpiryQuery) hasFilters() bool {
	return q.MedicineName != "" || q.BatchNumber != "" || q.SupplierName != "" ||
		q.Status != "" || q.StartDate != nil || q.EndDate != nil
}

// ExpiryItem is a classified in-stock batch
type ExpiryItem struct {
	ID            string          `json:"id"`
	MedicineName  string          `json:"medicine_name"`
	BatchNumber   string          `json:"batch_number"`
	ExpiryDate    dates.Date      `json:"expiry_date"`
	CurrentStock  int             `json:"current_stock"`
	DaysToExpiry  int             `json:"days_to_expiry"`
	EstimatedLoss decimal.Decimal `json:"estimated_loss"`
	ExpiryStatus  expiry.Status   `json:"expiry_status"`
	Description   string          `json:"description"`
	SupplierName  string          `json:"supplier_name"`
	MRP           decimal.Decimal `json:"mrp"`
	Quantity      int             `json:"quantity"`
}

// ExpiryPage is one page of the expiry list. TotalValueAtRisk covers every
// matching batch, not only the page.
type ExpiryPage struct {
	Data             []*ExpiryItem   `json:"data"`
	Total            int             `json:"total"`
	Page             int             `json:"page"`
	Limit            int             `json:"limit"`
	TotalPages       int             `json:"totalPages"`
	TotalValueAtRisk decimal.Decimal `json:"totalValueAtRisk"`
}

// ExpiryStats is the expiry dashboard
type ExpiryStats struct {
	ExpiredThisWeek  int64           `json:"expiredThisWeek"`
	ExpiringIn30Days int64           `json:"expiringIn30Days"`
	ExpiringIn90Days int64           `json:"expiringIn90Days"`
	ValueAtRisk      decimal.Decimal `json:"valueAtRisk"`
	RecentExpiries   []*ExpiryItem   `json:"recentExpiries"`
}

// ExpiryService answers expiry questions over live stock
type ExpiryService struct {
	db          Scoper
	inventory   InventoryStore
	resolver    *SupplierResolver
	logger      *logger.Logger
	windowDays  int
	maxPageSize int
	today       func() dates.Date
}

// NewExpiryService creates a new expiry service. windowDays is the default
// look-ahead of an unfiltered list, maxPageSize caps every page.
func NewExpiryService(db Scoper, stores Stores, windowDays, maxPageSize int, log *logger.Logger) *ExpiryService {
	if windowDays < 1 {
		windowDays = expiry.AlertDays
	}
	if maxPageSize < 1 {
		maxPageSize = defaultMaxPageSize
	}
	return &ExpiryService{
		db:          db,
		inventory:   stores.Inventory,
		resolver:    NewSupplierResolver(stores.Items),
		logger:      log.WithComponent("expiry"),
		windowDays:  windowDays,
		maxPageSize: maxPageSize,
		today:       dates.Today,
	}
}

// Stats counts batches by expiry window and sums the value at risk
func (s *ExpiryService) Stats(ctx context.Context, pharmacyID string) (*ExpiryStats, error) {
	today := s.today()
	stats := &ExpiryStats{}

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		counts, err := s.inventory.ExpiryCounts(ctx, pharmacyID, today)
		if err != nil {
			return err
		}
		stats.ExpiredThisWeek = counts.ExpiredThisWeek
		stats.ExpiringIn30Days = counts.ExpiringIn30Days
		stats.ExpiringIn90Days = counts.ExpiringIn90Days
		stats.ValueAtRisk = counts.ValueAtRisk.Round(2)

		rows, err := s.inventory.Upcoming(ctx, pharmacyID, today, recentExpiriesLimit)
		if err != nil {
			return err
		}
		stats.RecentExpiries = make([]*ExpiryItem, 0, len(rows))
		for _, row := range rows {
			stats.RecentExpiries = append(stats.RecentExpiries, toExpiryItem(row, today, repository.UnknownSupplier))
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to load expiry stats")
	}
	return stats, nil
}

// List classifies matching batches, attributes them to suppliers, filters by
// supplier and only then paginates
func (s *ExpiryService) List(ctx context.Context, pharmacyID string, q ExpiryQuery) (*ExpiryPage, error) {
	today := s.today()
	page, limit := s.pagination(q.Page, q.Limit)

	filter := repository.ExpiryFilter{
		MedicineName: strings.TrimSpace(q.MedicineName),
		BatchNumber:  strings.TrimSpace(q.BatchNumber),
	}
	if q.Status != "" {
		filter.After, filter.Through = q.Status.Window(today)
	}
	if q.StartDate != nil {
		filter.From = q.StartDate
	}
	if q.EndDate != nil && (filter.Through == nil || q.EndDate.Before(*filter.Through)) {
		filter.Through = q.EndDate
	}
	if !q.hasFilters() {
		days := q.Days
		if days <= 0 {
			days = s.windowDays
		}
		through := today.AddDays(days)
		filter.From = &today
		filter.Through = &through
	}

	var matched []*ExpiryItem
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		rows, err := s.inventory.ListExpiring(ctx, pharmacyID, filter)
		if err != nil {
			return err
		}

		keys := make([]repository.BatchKey, len(rows))
		for i, row := range rows {
			keys[i] = batchKey(row)
		}
		suppliers, err := s.resolver.Resolve(ctx, pharmacyID, keys)
		if err != nil {
			return err
		}

		matched = make([]*ExpiryItem, 0, len(rows))
		for _, row := range rows {
			supplier := suppliers[batchKey(row)]
			if !SupplierMatches(supplier, strings.TrimSpace(q.SupplierName)) {
				continue
			}
			matched = append(matched, toExpiryItem(row, today, supplier))
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to list expiring stock")
	}

	atRisk := decimal.Zero
	for _, item := range matched {
		atRisk = atRisk.Add(item.EstimatedLoss)
	}

	start := len(matched)
	if page-1 <= len(matched)/limit {
		start = (page - 1) * limit
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return &ExpiryPage{
		Data:             matched[start:end],
		Total:            len(matched),
		Page:             page,
		Limit:            limit,
		TotalPages:       (len(matched) + limit - 1) / limit,
		TotalValueAtRisk: atRisk.Round(2),
	}, nil
}

func (s *ExpiryService) pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

func batchKey(row *repository.ExpiryRow) repository.BatchKey {
	return repository.BatchKey{
		MedicineID:  row.MedicineID,
		BatchNumber: row.BatchNumber,
		ExpiryDate:  row.ExpiryDate,
	}
}

func toExpiryItem(row *repository.ExpiryRow, today dates.Date, supplier string) *ExpiryItem {
	days, status := expiry.Classify(row.ExpiryDate, today)
	return &ExpiryItem{
		ID:            row.ID,
		MedicineName:  row.MedicineName,
		BatchNumber:   row.BatchNumber,
		ExpiryDate:    row.ExpiryDate,
		CurrentStock:  row.CurrentStock,
		DaysToExpiry:  days,
		EstimatedLoss: row.Rate.Mul(decimal.NewFromInt(int64(row.CurrentStock))).Round(2),
		ExpiryStatus:  status,
		Description:   expiry.Describe(days),
		SupplierName:  supplier,
		MRP:           row.MRP,
		Quantity:      row.CurrentStock,
	}
}
