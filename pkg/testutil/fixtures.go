package testutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FixtureFactory inserts test rows directly, bypassing the services
type FixtureFactory struct {
	db       *sqlx.DB
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// UniqueName returns prefix with a suffix no other fixture uses
func (f *FixtureFactory) UniqueName(prefix string) string {
	return fmt.Sprintf("%s %d-%s", prefix, f.nextSeq(), uuid.New().String()[:8])
}

// Pharmacy inserts a pharmacy and returns its id
func (f *FixtureFactory) Pharmacy(ctx context.Context, name string) (string, error) {
	id := uuid.New().String()
	_, err := f.db.ExecContext(ctx, `INSERT INTO pharmacies (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		return "", fmt.Errorf("failed to insert pharmacy: %w", err)
	}
	return id, nil
}

// DropPharmacy deletes every row of a pharmacy, children first
func (f *FixtureFactory) DropPharmacy(ctx context.Context, pharmacyID string) error {
	statements := []string{
		`DELETE FROM expiry_alerts WHERE pharmacy_id = $1`,
		`DELETE FROM stock_transactions WHERE pharmacy_id = $1`,
		`DELETE FROM current_inventory WHERE pharmacy_id = $1`,
		`DELETE FROM purchase_items WHERE purchase_id IN (SELECT id FROM purchases WHERE pharmacy_id = $1)`,
		`DELETE FROM purchases WHERE pharmacy_id = $1`,
		`DELETE FROM suppliers WHERE pharmacy_id = $1`,
		`DELETE FROM pharmacies WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := f.db.ExecContext(ctx, stmt, pharmacyID); err != nil {
			return err
		}
	}
	return nil
}

// Count runs a COUNT(*) query and returns the result
func (f *FixtureFactory) Count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := f.db.GetContext(ctx, &n, query, args...)
	return n, err
}
