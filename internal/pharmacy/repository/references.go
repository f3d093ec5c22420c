package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// requiredReferences must all be readable before a medicine may be removed
var requiredReferences = []string{"purchase_items", "current_inventory", "stock_transactions"}

// ReferenceChecker answers whether a medicine is still in use.
//
// It fails closed: when a required table cannot be read the medicine counts
// as referenced, so an outage never deletes catalog data.
type ReferenceChecker struct {
	db     *database.DB
	logger *logger.Logger
}

// NewReferenceChecker creates a new reference checker
func NewReferenceChecker(db *database.DB, log *logger.Logger) *ReferenceChecker {
	return &ReferenceChecker{db: db, logger: log.WithComponent("reference_checker")}
}

// MedicineReferenced reports whether any stock record still points at the medicine
func (c *ReferenceChecker) MedicineReferenced(ctx context.Context, medicineID string) bool {
	for _, table := range requiredReferences {
		found, err := c.probe(ctx, table, medicineID)
		if err != nil {
			c.logger.Error().Err(err).
				Str("table", table).
				Str("medicine_id", medicineID).
				Msg("reference check failed, keeping medicine")
			return true
		}
		if found {
			return true
		}
	}

	found, err := c.probe(ctx, "expiry_alerts", medicineID)
	if err != nil {
		c.logger.Debug().Err(err).Str("medicine_id", medicineID).Msg("expiry alerts not checked")
		return false
	}
	return found
}

func (c *ReferenceChecker) probe(ctx context.Context, table, medicineID string) (bool, error) {
	var found bool
	err := c.db.Savepoint(ctx, "ref_"+table, func(ctx context.Context) error {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE medicine_id = $1)`, table)
		return sqlx.GetContext(ctx, c.db.Conn(ctx), &found, query, medicineID)
	})
	return found, err
}
