package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithPharmacy runs fn inside one transaction bound to a pharmacy.
//
// The pharmacy id is exported to the session as app.current_pharmacy so
// row-level security policies of the form
//
//	USING (pharmacy_id = current_setting('app.current_pharmacy')::uuid)
//
// filter rows automatically. set_config(..., true) is transaction local,
// so pooled connections never leak the setting to the next request.
//
// The transaction travels in the context passed to fn. Repositories pick it
// up through Conn. A nested call reuses the outer transaction.
func (db *DB) WithPharmacy(ctx context.Context, pharmacyID string, fn func(context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_pharmacy', $1, true)", pharmacyID); err != nil {
			return fmt.Errorf("failed to set app.current_pharmacy: %w", err)
		}

		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or the pool when there is none.
func (db *DB) Conn(ctx context.Context) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// Savepoint runs fn under a named savepoint of the transaction in ctx.
// When fn fails the work since the savepoint is undone and the outer
// transaction stays usable. Outside a transaction fn runs as is.
func (db *DB) Savepoint(ctx context.Context, name string, fn func(context.Context) error) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return fn(ctx)
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			db.logger.Error().Err(rbErr).Str("savepoint", name).Msg("failed to roll back to savepoint")
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
