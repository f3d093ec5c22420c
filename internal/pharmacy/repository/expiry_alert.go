package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
)

// ExpiryAlert flags a batch that is expired or about to expire
type ExpiryAlert struct {
	ID             string     `db:"id" json:"id"`
	PharmacyID     string     `db:"pharmacy_id" json:"pharmacy_id"`
	MedicineID     string     `db:"medicine_id" json:"medicine_id"`
	PurchaseItemID string     `db:"purchase_item_id" json:"purchase_item_id"`
	BatchNumber    string     `db:"batch_number" json:"batch_number"`
	ExpiryDate     dates.Date `db:"expiry_date" json:"expiry_date"`
	DaysToExpiry   int        `db:"days_to_expiry" json:"days_to_expiry"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AlertChanges carries item edits to the alert an item owns
type AlertChanges struct {
	BatchNumber  *string
	ExpiryDate   *dates.Date
	DaysToExpiry *int
	Status       *string
}

// ExpiryAlertRepository handles expiry alert persistence.
//
// Alerts are derived data. Edits and deletes run under their own savepoint
// so a failure here never aborts the surrounding transaction.
type ExpiryAlertRepository struct {
	db *database.DB
}

// NewExpiryAlertRepository creates a new expiry alert repository
func NewExpiryAlertRepository(db *database.DB) *ExpiryAlertRepository {
	return &ExpiryAlertRepository{db: db}
}

// UpdateOwned propagates item edits to the alert owned by a purchase item
func (r *ExpiryAlertRepository) UpdateOwned(ctx context.Context, purchaseItemID string, c AlertChanges) error {
	var set assignments
	if c.BatchNumber != nil {
		set.add("batch_number", *c.BatchNumber)
	}
	if c.ExpiryDate != nil {
		set.add("expiry_date", *c.ExpiryDate)
	}
	if c.DaysToExpiry != nil {
		set.add("days_to_expiry", *c.DaysToExpiry)
	}
	if c.Status != nil {
		set.add("status", *c.Status)
	}
	if set.empty() {
		return nil
	}

	query, args := set.update("expiry_alerts", "purchase_item_id", purchaseItemID)
	return r.db.Savepoint(ctx, "expiry_alerts_update", func(ctx context.Context) error {
		_, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
		return err
	})
}

// DeleteByPurchaseItem deletes the alert owned by a purchase item
func (r *ExpiryAlertRepository) DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) error {
	return r.db.Savepoint(ctx, "expiry_alerts_delete", func(ctx context.Context) error {
		_, err := r.db.Conn(ctx).ExecContext(ctx,
			`DELETE FROM expiry_alerts WHERE purchase_item_id = $1`, purchaseItemID)
		return err
	})
}

// Upsert creates or refreshes the alert of a purchase item and reports
// whether a new alert was created
func (r *ExpiryAlertRepository) Upsert(ctx context.Context, a *ExpiryAlert) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO expiry_alerts (
			id, pharmacy_id, medicine_id, purchase_item_id, batch_number, expiry_date, days_to_expiry, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (purchase_item_id) DO UPDATE SET
			batch_number = EXCLUDED.batch_number,
			expiry_date = EXCLUDED.expiry_date,
			days_to_expiry = EXCLUDED.days_to_expiry,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		a.ID, a.PharmacyID, a.MedicineID, a.PurchaseItemID, a.BatchNumber, a.ExpiryDate, a.DaysToExpiry, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// DeleteOutside removes alerts of the pharmacy whose owning item is not in
// keep, clearing alerts for batches that sold out or moved past the window
func (r *ExpiryAlertRepository) DeleteOutside(ctx context.Context, pharmacyID string, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	query := `DELETE FROM expiry_alerts WHERE pharmacy_id = $1 AND NOT (purchase_item_id = ANY($2::uuid[]))`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, pharmacyID, pq.Array(keep))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
