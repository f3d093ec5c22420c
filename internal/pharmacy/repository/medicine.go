package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
)

// Medicine is an entry of the shared medicine catalog
type Medicine struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	GenericName  *string   `db:"generic_name" json:"generic_name,omitempty"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	Strength     *string   `db:"strength" json:"strength,omitempty"`
	UnitType     string    `db:"unit_type" json:"unit_type"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

const medicineColumns = `id, name, generic_name, manufacturer, strength, unit_type, is_active, created_at, updated_at`

// MedicineRepository handles medicine persistence
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// Create creates a new medicine
func (r *MedicineRepository) Create(ctx context.Context, m *Medicine) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medicines (id, name, generic_name, manufacturer, strength, unit_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		m.ID, m.Name, m.GenericName, m.Manufacturer, m.Strength, m.UnitType, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

// GetByID gets a medicine by ID
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*Medicine, error) {
	var m Medicine
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &m, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine")
		}
		return nil, err
	}
	return &m, nil
}

// FindByName looks a medicine up by exact name. Returns nil when absent.
func (r *MedicineRepository) FindByName(ctx context.Context, name string) (*Medicine, error) {
	var m Medicine
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE name = $1 ORDER BY created_at LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &m, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// List lists active medicines matching search on name, generic name or manufacturer
func (r *MedicineRepository) List(ctx context.Context, search string, page, limit int) ([]*Medicine, int64, error) {
	var where conditions
	where.raw("is_active = true")
	if search != "" {
		where.add("(name ILIKE $%[1]d OR generic_name ILIKE $%[1]d OR manufacturer ILIKE $%[1]d)", likePattern(search))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM medicines` + where.sql()
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &total, countQuery, where.args...); err != nil {
		return nil, 0, err
	}

	suffix, args := where.paginate(limit, offset(page, limit))
	query := `SELECT ` + medicineColumns + ` FROM medicines` + where.sql() + ` ORDER BY name` + suffix

	medicines := []*Medicine{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &medicines, query, args...); err != nil {
		return nil, 0, err
	}
	return medicines, total, nil
}

// Rename sets both name and generic name. The catalog is shared, so every
// purchase of this medicine shows the new name.
func (r *MedicineRepository) Rename(ctx context.Context, id, name string) error {
	query := `UPDATE medicines SET name = $2, generic_name = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id, name)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("medicine")
	}
	return nil
}

// DeleteOrphan deletes a medicine nothing references any more. Rows of
// other pharmacies are invisible under row-level security, so a foreign key
// violation means the medicine is still in use elsewhere and it is kept.
func (r *MedicineRepository) DeleteOrphan(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.Savepoint(ctx, "medicine_delete", func(ctx context.Context) error {
		result, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		deleted = affected > 0
		return nil
	})
	if database.IsForeignKeyViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// CountActive counts active catalog entries
func (r *MedicineRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COUNT(*) FROM medicines WHERE is_active = true`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &total, query); err != nil {
		return 0, err
	}
	return total, nil
}
