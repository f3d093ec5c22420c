package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// PurchaseStatusReceived marks goods that arrived with the invoice
const PurchaseStatusReceived = "received"

// Purchase is one supplier invoice
type Purchase struct {
	ID            string          `db:"id" json:"id"`
	PharmacyID    string          `db:"pharmacy_id" json:"pharmacy_id"`
	SupplierID    string          `db:"supplier_id" json:"supplier_id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	InvoiceDate   dates.Date      `db:"invoice_date" json:"invoice_date"`
	PurchaseDate  dates.Date      `db:"purchase_date" json:"purchase_date"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PurchaseLine is one line item flattened with its invoice, supplier and medicine
type PurchaseLine struct {
	ID             string          `db:"id" json:"id"`
	PurchaseID     string          `db:"purchase_id" json:"purchase_id"`
	PurchaseItemID string          `db:"purchase_item_id" json:"purchase_item_id"`
	MedicineName   string          `db:"medicine_name" json:"medicine_name"`
	GenericName    string          `db:"generic_name" json:"generic_name"`
	Manufacturer   string          `db:"manufacturer" json:"manufacturer"`
	Strength       string          `db:"strength" json:"strength"`
	UnitType       string          `db:"unit_type" json:"unit_type"`
	SupplierName   string          `db:"supplier_name" json:"supplier_name"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	Quantity       int             `db:"quantity" json:"quantity"`
	PurchaseRate   decimal.Decimal `db:"purchase_rate" json:"purchase_rate"`
	MRP            decimal.Decimal `db:"mrp" json:"mrp"`
	ExpiryDate     dates.Date      `db:"expiry_date" json:"expiry_date"`
	PurchaseDate   dates.Date      `db:"purchase_date" json:"purchase_date"`
	InvoiceNumber  string          `db:"invoice_number" json:"invoice_number"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
}

// PurchaseLineFilter narrows the purchase line listing. Text filters are
// case-insensitive substring matches on the line itself.
type PurchaseLineFilter struct {
	MedicineName string
	SupplierName string
	BatchNumber  string
	PurchaseDate *dates.Date
}

// RecentPurchase summarises a recent invoice for the purchases dashboard
type RecentPurchase struct {
	ID           string          `db:"id" json:"id"`
	MedicineName string          `db:"medicine_name" json:"medicine_name"`
	Supplier     string          `db:"supplier" json:"supplier"`
	Quantity     int             `db:"quantity" json:"quantity"`
	Rate         decimal.Decimal `db:"rate" json:"rate"`
	MRP          decimal.Decimal `db:"mrp" json:"mrp"`
	ExpiryDate   dates.Date      `db:"expiry_date" json:"expiry_date"`
	Total        decimal.Decimal `db:"total" json:"total"`
	PurchaseDate dates.Date      `db:"purchase_date" json:"purchase_date"`
	ItemsCount   int             `db:"items_count" json:"items_count"`
	CreatedAt    time.Time       `db:"created_at" json:"-"`
}

// PurchaseTotals aggregates invoices that still carry at least one line
type PurchaseTotals struct {
	Today              decimal.Decimal `db:"today"`
	ThisMonth          decimal.Decimal `db:"this_month"`
	TotalEntries       int64           `db:"total_entries"`
	DifferentSuppliers int64           `db:"different_suppliers"`
}

const purchaseColumns = `id, pharmacy_id, supplier_id, invoice_number, invoice_date, purchase_date,
	total_amount, status, created_at, updated_at`

// PurchaseRepository handles purchase persistence
type PurchaseRepository struct {
	db *database.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create creates a new purchase
func (r *PurchaseRepository) Create(ctx context.Context, p *Purchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO purchases (
			id, pharmacy_id, supplier_id, invoice_number, invoice_date, purchase_date, total_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		p.ID, p.PharmacyID, p.SupplierID, p.InvoiceNumber, p.InvoiceDate, p.PurchaseDate,
		p.TotalAmount, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID gets a purchase of the pharmacy
func (r *PurchaseRepository) GetByID(ctx context.Context, pharmacyID, id string) (*Purchase, error) {
	var p Purchase
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1 AND pharmacy_id = $2`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &p, query, id, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase")
		}
		return nil, err
	}
	return &p, nil
}

// UpdateTotal persists a recalculated invoice total
func (r *PurchaseRepository) UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error {
	query := `UPDATE purchases SET total_amount = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id, total)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("purchase")
	}
	return nil
}

// Delete deletes a purchase
func (r *PurchaseRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM purchases WHERE id = $1`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("purchase")
	}
	return nil
}

// ListLines lists line items newest invoice first. Invoices without lines
// cannot appear since rows come from purchase_items.
func (r *PurchaseRepository) ListLines(ctx context.Context, pharmacyID string, f PurchaseLineFilter, page, limit int) ([]*PurchaseLine, int64, error) {
	var where conditions
	where.add("p.pharmacy_id = $%d", pharmacyID)
	if f.MedicineName != "" {
		where.add("(m.name ILIKE $%[1]d OR m.generic_name ILIKE $%[1]d)", likePattern(f.MedicineName))
	}
	if f.BatchNumber != "" {
		where.add("pi.batch_number ILIKE $%d", likePattern(f.BatchNumber))
	}
	if f.SupplierName != "" {
		where.add("s.name ILIKE $%d", likePattern(f.SupplierName))
	}
	if f.PurchaseDate != nil {
		where.add("p.purchase_date = $%d", *f.PurchaseDate)
	}

	from := `
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		JOIN medicines m ON m.id = pi.medicine_id
		LEFT JOIN suppliers s ON s.id = p.supplier_id`

	var total int64
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &total, `SELECT COUNT(*)`+from+where.sql(), where.args...); err != nil {
		return nil, 0, err
	}

	suffix, args := where.paginate(limit, offset(page, limit))
	query := `
		SELECT
			p.id || '-' || pi.id AS id,
			p.id AS purchase_id,
			pi.id AS purchase_item_id,
			m.name AS medicine_name,
			COALESCE(m.generic_name, '') AS generic_name,
			m.manufacturer,
			COALESCE(m.strength, '') AS strength,
			m.unit_type,
			COALESCE(s.name, 'Unknown') AS supplier_name,
			pi.batch_number,
			pi.quantity,
			pi.purchase_rate,
			pi.mrp,
			pi.expiry_date,
			p.purchase_date,
			p.invoice_number,
			p.total_amount` + from + where.sql() + `
		ORDER BY p.created_at DESC, pi.created_at` + suffix

	lines := []*PurchaseLine{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &lines, query, args...); err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

// Totals aggregates invoices that still have lines
func (r *PurchaseRepository) Totals(ctx context.Context, pharmacyID string, today dates.Date) (*PurchaseTotals, error) {
	var t PurchaseTotals
	query := `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE purchase_date = $2), 0) AS today,
			COALESCE(SUM(total_amount) FILTER (WHERE purchase_date >= $3), 0) AS this_month,
			COUNT(*) AS total_entries,
			COUNT(DISTINCT supplier_id) AS different_suppliers
		FROM purchases p
		WHERE p.pharmacy_id = $1
		AND EXISTS (SELECT 1 FROM purchase_items pi WHERE pi.purchase_id = p.id)
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &t, query, pharmacyID, today, today.StartOfMonth()); err != nil {
		return nil, err
	}
	return &t, nil
}

// Recent returns the newest invoices that still have lines, summarised by
// their first line
func (r *PurchaseRepository) Recent(ctx context.Context, pharmacyID string, limit int) ([]*RecentPurchase, error) {
	query := `
		SELECT
			p.id,
			COALESCE(first.medicine_name, 'Multiple Items') AS medicine_name,
			COALESCE(s.name, 'Unknown') AS supplier,
			agg.quantity,
			first.purchase_rate AS rate,
			first.mrp,
			first.expiry_date,
			p.total_amount AS total,
			p.purchase_date,
			agg.items_count,
			p.created_at
		FROM purchases p
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		JOIN LATERAL (
			SELECT COUNT(*) AS items_count, COALESCE(SUM(pi.quantity), 0) AS quantity
			FROM purchase_items pi WHERE pi.purchase_id = p.id
		) agg ON agg.items_count > 0
		JOIN LATERAL (
			SELECT m.name AS medicine_name, pi.purchase_rate, pi.mrp, pi.expiry_date
			FROM purchase_items pi
			JOIN medicines m ON m.id = pi.medicine_id
			WHERE pi.purchase_id = p.id
			ORDER BY pi.created_at
			LIMIT 1
		) first ON true
		WHERE p.pharmacy_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`

	recent := []*RecentPurchase{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &recent, query, pharmacyID, limit); err != nil {
		return nil, err
	}
	return recent, nil
}
