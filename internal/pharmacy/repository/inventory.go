package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/shopspring/decimal"
)

// InventoryItem is the live stock of one batch, owned by the purchase item
// that brought it in
type InventoryItem struct {
	ID               string          `db:"id" json:"id"`
	PharmacyID       string          `db:"pharmacy_id" json:"pharmacy_id"`
	MedicineID       string          `db:"medicine_id" json:"medicine_id"`
	PurchaseItemID   *string         `db:"purchase_item_id" json:"purchase_item_id,omitempty"`
	BatchNumber      string          `db:"batch_number" json:"batch_number"`
	ExpiryDate       dates.Date      `db:"expiry_date" json:"expiry_date"`
	CurrentStock     int             `db:"current_stock" json:"current_stock"`
	LastPurchaseRate decimal.Decimal `db:"last_purchase_rate" json:"last_purchase_rate"`
	CurrentMRP       decimal.Decimal `db:"current_mrp" json:"current_mrp"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// OwnedChanges carries item edits down to the rows an item owns
type OwnedChanges struct {
	BatchNumber *string
	ExpiryDate  *dates.Date
	Quantity    *int
	Rate        *decimal.Decimal
	MRP         *decimal.Decimal
	Amount      *decimal.Decimal
}

// ExpiryRow is an in-stock batch as seen by the expiry views
type ExpiryRow struct {
	ID             string          `db:"id"`
	MedicineID     string          `db:"medicine_id"`
	PurchaseItemID *string         `db:"purchase_item_id"`
	MedicineName   string          `db:"medicine_name"`
	BatchNumber    string          `db:"batch_number"`
	ExpiryDate     dates.Date      `db:"expiry_date"`
	CurrentStock   int             `db:"current_stock"`
	Rate           decimal.Decimal `db:"last_purchase_rate"`
	MRP            decimal.Decimal `db:"current_mrp"`
}

// ExpiryFilter narrows in-stock batches. After is exclusive, From and
// Through are inclusive.
type ExpiryFilter struct {
	MedicineName string
	BatchNumber  string
	After        *dates.Date
	From         *dates.Date
	Through      *dates.Date
}

// ExpiryCounts are the expiry dashboard aggregates
type ExpiryCounts struct {
	ExpiredThisWeek  int64           `db:"expired_this_week"`
	ExpiringIn30Days int64           `db:"expiring_in_30_days"`
	ExpiringIn90Days int64           `db:"expiring_in_90_days"`
	ValueAtRisk      decimal.Decimal `db:"value_at_risk"`
}

// StockSummary aggregates the live batches of one medicine
type StockSummary struct {
	MedicineID    string          `db:"medicine_id" json:"medicine_id"`
	MedicineName  string          `db:"medicine_name" json:"medicine_name"`
	GenericName   string          `db:"generic_name" json:"generic_name"`
	Manufacturer  string          `db:"manufacturer" json:"manufacturer"`
	Strength      string          `db:"strength" json:"strength"`
	UnitType      string          `db:"unit_type" json:"unit_type"`
	TotalStock    int64           `db:"total_stock" json:"total_stock"`
	BatchCount    int64           `db:"batch_count" json:"batch_count"`
	NearestExpiry *dates.Date     `db:"nearest_expiry" json:"nearest_expiry"`
	StockValue    decimal.Decimal `db:"stock_value" json:"stock_value"`
	LowStock      bool            `db:"low_stock" json:"low_stock"`
}

// InventoryRepository handles current inventory persistence
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create creates a new inventory row
func (r *InventoryRepository) Create(ctx context.Context, inv *InventoryItem) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	query := `
		INSERT INTO current_inventory (
			id, pharmacy_id, medicine_id, purchase_item_id, batch_number, expiry_date,
			current_stock, last_purchase_rate, current_mrp, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		inv.ID, inv.PharmacyID, inv.MedicineID, inv.PurchaseItemID, inv.BatchNumber, inv.ExpiryDate,
		inv.CurrentStock, inv.LastPurchaseRate, inv.CurrentMRP, inv.IsActive,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
}

// UpdateOwned propagates item edits to the rows owned by a purchase item
func (r *InventoryRepository) UpdateOwned(ctx context.Context, purchaseItemID string, c OwnedChanges) (int64, error) {
	var set assignments
	if c.BatchNumber != nil {
		set.add("batch_number", *c.BatchNumber)
	}
	if c.ExpiryDate != nil {
		set.add("expiry_date", *c.ExpiryDate)
	}
	if c.Quantity != nil {
		set.add("current_stock", *c.Quantity)
	}
	if c.Rate != nil {
		set.add("last_purchase_rate", *c.Rate)
	}
	if c.MRP != nil {
		set.add("current_mrp", *c.MRP)
	}
	if set.empty() {
		return 0, nil
	}

	query, args := set.update("current_inventory", "purchase_item_id", purchaseItemID)
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByPurchaseItem deletes the rows owned by a purchase item
func (r *InventoryRepository) DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) (int64, error) {
	result, err := r.db.Conn(ctx).ExecContext(ctx,
		`DELETE FROM current_inventory WHERE purchase_item_id = $1`, purchaseItemID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListExpiring lists in-stock batches matching f, soonest expiry first
func (r *InventoryRepository) ListExpiring(ctx context.Context, pharmacyID string, f ExpiryFilter) ([]*ExpiryRow, error) {
	var where conditions
	where.add("ci.pharmacy_id = $%d", pharmacyID)
	where.raw("ci.is_active = true")
	where.raw("ci.current_stock > 0")
	if f.MedicineName != "" {
		where.add("m.name ILIKE $%d", likePattern(f.MedicineName))
	}
	if f.BatchNumber != "" {
		where.add("ci.batch_number ILIKE $%d", likePattern(f.BatchNumber))
	}
	if f.After != nil {
		where.add("ci.expiry_date > $%d", *f.After)
	}
	if f.From != nil {
		where.add("ci.expiry_date >= $%d", *f.From)
	}
	if f.Through != nil {
		where.add("ci.expiry_date <= $%d", *f.Through)
	}

	query := `
		SELECT ci.id, ci.medicine_id, ci.purchase_item_id, m.name AS medicine_name, ci.batch_number,
			ci.expiry_date, ci.current_stock, ci.last_purchase_rate, ci.current_mrp
		FROM current_inventory ci
		JOIN medicines m ON m.id = ci.medicine_id` + where.sql() + `
		ORDER BY ci.expiry_date, m.name, ci.batch_number`

	rows := []*ExpiryRow{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &rows, query, where.args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpiryCounts computes the expiry dashboard windows relative to today
func (r *InventoryRepository) ExpiryCounts(ctx context.Context, pharmacyID string, today dates.Date) (*ExpiryCounts, error) {
	var c ExpiryCounts
	query := `
		SELECT
			COUNT(*) FILTER (WHERE expiry_date >= $2 AND expiry_date < $3) AS expired_this_week,
			COUNT(*) FILTER (WHERE expiry_date >= $3 AND expiry_date <= $4) AS expiring_in_30_days,
			COUNT(*) FILTER (WHERE expiry_date >= $3 AND expiry_date <= $5) AS expiring_in_90_days,
			COALESCE(SUM(current_stock * last_purchase_rate) FILTER (WHERE expiry_date >= $3 AND expiry_date <= $5), 0) AS value_at_risk
		FROM current_inventory
		WHERE pharmacy_id = $1 AND is_active = true AND current_stock > 0
	`
	err := sqlx.GetContext(ctx, r.db.Conn(ctx), &c, query,
		pharmacyID, today.AddDays(-7), today, today.AddDays(30), today.AddDays(90))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upcoming lists the next batches to expire, starting today
func (r *InventoryRepository) Upcoming(ctx context.Context, pharmacyID string, today dates.Date, limit int) ([]*ExpiryRow, error) {
	query := `
		SELECT ci.id, ci.medicine_id, ci.purchase_item_id, m.name AS medicine_name, ci.batch_number,
			ci.expiry_date, ci.current_stock, ci.last_purchase_rate, ci.current_mrp
		FROM current_inventory ci
		JOIN medicines m ON m.id = ci.medicine_id
		WHERE ci.pharmacy_id = $1 AND ci.is_active = true AND ci.current_stock > 0
		AND ci.expiry_date >= $2
		ORDER BY ci.expiry_date, m.name
		LIMIT $3
	`

	rows := []*ExpiryRow{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &rows, query, pharmacyID, today, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// Summary aggregates live stock per medicine. With lowStockOnly set only
// medicines whose total stock is at or below threshold are kept.
func (r *InventoryRepository) Summary(ctx context.Context, pharmacyID, search string, threshold int, lowStockOnly bool, page, limit int) ([]*StockSummary, int64, error) {
	var where conditions
	where.add("ci.pharmacy_id = $%d", pharmacyID)
	where.raw("ci.is_active = true")
	if search != "" {
		where.add("(m.name ILIKE $%[1]d OR m.generic_name ILIKE $%[1]d OR m.manufacturer ILIKE $%[1]d)", likePattern(search))
	}

	low := where.arg(threshold)
	having := ""
	if lowStockOnly {
		having = " HAVING SUM(ci.current_stock) <= " + low
	}

	grouped := `
		SELECT
			m.id AS medicine_id,
			m.name AS medicine_name,
			COALESCE(m.generic_name, '') AS generic_name,
			m.manufacturer,
			COALESCE(m.strength, '') AS strength,
			m.unit_type,
			SUM(ci.current_stock) AS total_stock,
			COUNT(*) AS batch_count,
			MIN(ci.expiry_date) FILTER (WHERE ci.current_stock > 0) AS nearest_expiry,
			COALESCE(SUM(ci.current_stock * ci.last_purchase_rate), 0) AS stock_value,
			SUM(ci.current_stock) <= ` + low + ` AS low_stock
		FROM current_inventory ci
		JOIN medicines m ON m.id = ci.medicine_id` + where.sql() + `
		GROUP BY m.id, m.name, m.generic_name, m.manufacturer, m.strength, m.unit_type` + having

	var total int64
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &total, `SELECT COUNT(*) FROM (`+grouped+`) g`, where.args...); err != nil {
		return nil, 0, err
	}

	suffix, args := where.paginate(limit, offset(page, limit))
	summaries := []*StockSummary{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &summaries, grouped+` ORDER BY m.name`+suffix, args...); err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// StockValue sums stock times purchase rate over live batches
func (r *InventoryRepository) StockValue(ctx context.Context, pharmacyID string) (decimal.Decimal, error) {
	var v decimal.Decimal
	query := `
		SELECT COALESCE(SUM(current_stock * last_purchase_rate), 0)
		FROM current_inventory
		WHERE pharmacy_id = $1 AND is_active = true AND current_stock > 0
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &v, query, pharmacyID); err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

// CountMedicinesInStock counts distinct medicines with stock on hand
func (r *InventoryRepository) CountMedicinesInStock(ctx context.Context, pharmacyID string) (int64, error) {
	var n int64
	query := `
		SELECT COUNT(DISTINCT medicine_id)
		FROM current_inventory
		WHERE pharmacy_id = $1 AND is_active = true AND current_stock > 0
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &n, query, pharmacyID); err != nil {
		return 0, err
	}
	return n, nil
}

// CountExpiringBy counts in-stock batches expiring on or before through,
// already expired ones included
func (r *InventoryRepository) CountExpiringBy(ctx context.Context, pharmacyID string, through dates.Date) (int64, error) {
	var n int64
	query := `
		SELECT COUNT(*)
		FROM current_inventory
		WHERE pharmacy_id = $1 AND is_active = true AND current_stock > 0 AND expiry_date <= $2
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &n, query, pharmacyID, through); err != nil {
		return 0, err
	}
	return n, nil
}
