package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Supplier is a wholesaler a pharmacy buys from
type Supplier struct {
	ID                string          `db:"id" json:"id"`
	PharmacyID        string          `db:"pharmacy_id" json:"pharmacy_id"`
	Name              string          `db:"name" json:"name"`
	ContactPerson     *string         `db:"contact_person" json:"contact_person,omitempty"`
	Phone             *string         `db:"phone" json:"phone,omitempty"`
	Email             *string         `db:"email" json:"email,omitempty"`
	Address           *string         `db:"address" json:"address,omitempty"`
	City              *string         `db:"city" json:"city,omitempty"`
	GSTNumber         *string         `db:"gst_number" json:"gst_number,omitempty"`
	DrugLicenseNumber *string         `db:"drug_license_number" json:"drug_license_number,omitempty"`
	CreditDays        int             `db:"credit_days" json:"credit_days"`
	CreditLimit       decimal.Decimal `db:"credit_limit" json:"credit_limit"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

const supplierColumns = `id, pharmacy_id, name, contact_person, phone, email, address, city,
	gst_number, drug_license_number, credit_days, credit_limit, is_active, created_at, updated_at`

// SupplierRepository handles supplier persistence
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier
func (r *SupplierRepository) Create(ctx context.Context, s *Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO suppliers (
			id, pharmacy_id, name, contact_person, phone, email, address, city,
			gst_number, drug_license_number, credit_days, credit_limit, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		s.ID, s.PharmacyID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.City,
		s.GSTNumber, s.DrugLicenseNumber, s.CreditDays, s.CreditLimit, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID gets a supplier of the pharmacy
func (r *SupplierRepository) GetByID(ctx context.Context, pharmacyID, id string) (*Supplier, error) {
	var s Supplier
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1 AND pharmacy_id = $2`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &s, query, id, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("supplier")
		}
		return nil, err
	}
	return &s, nil
}

// FindByName looks a supplier up by exact name. Returns nil when absent.
func (r *SupplierRepository) FindByName(ctx context.Context, pharmacyID, name string) (*Supplier, error) {
	var s Supplier
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE pharmacy_id = $1 AND name = $2`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &s, query, pharmacyID, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List lists active suppliers of the pharmacy
func (r *SupplierRepository) List(ctx context.Context, pharmacyID, search string, page, limit int) ([]*Supplier, int64, error) {
	var where conditions
	where.add("pharmacy_id = $%d", pharmacyID)
	where.raw("is_active = true")
	if search != "" {
		where.add("(name ILIKE $%[1]d OR contact_person ILIKE $%[1]d OR city ILIKE $%[1]d)", likePattern(search))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM suppliers` + where.sql()
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &total, countQuery, where.args...); err != nil {
		return nil, 0, err
	}

	suffix, args := where.paginate(limit, offset(page, limit))
	query := `SELECT ` + supplierColumns + ` FROM suppliers` + where.sql() + ` ORDER BY name` + suffix

	suppliers := []*Supplier{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &suppliers, query, args...); err != nil {
		return nil, 0, err
	}
	return suppliers, total, nil
}

// Rename changes the supplier name. Purchases reference suppliers by id,
// so nothing else needs to change.
func (r *SupplierRepository) Rename(ctx context.Context, pharmacyID, id, name string) (*Supplier, error) {
	var s Supplier
	query := `
		UPDATE suppliers SET name = $3, updated_at = NOW()
		WHERE id = $1 AND pharmacy_id = $2
		RETURNING ` + supplierColumns

	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &s, query, id, pharmacyID, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("supplier")
		}
		return nil, err
	}
	return &s, nil
}
