package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
)

// Pharmacy is the scope every stock and purchase row belongs to
type Pharmacy struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PharmacyRepository handles pharmacy lookups
type PharmacyRepository struct {
	db *database.DB
}

// NewPharmacyRepository creates a new pharmacy repository
func NewPharmacyRepository(db *database.DB) *PharmacyRepository {
	return &PharmacyRepository{db: db}
}

// GetByID gets an active pharmacy
func (r *PharmacyRepository) GetByID(ctx context.Context, id string) (*Pharmacy, error) {
	var p Pharmacy
	query := `SELECT id, name, is_active, created_at FROM pharmacies WHERE id = $1 AND is_active = true`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("pharmacy")
		}
		return nil, err
	}
	return &p, nil
}

// ListActiveIDs returns every active pharmacy, used by the background scanner
func (r *PharmacyRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT id FROM pharmacies WHERE is_active = true ORDER BY created_at`
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}
