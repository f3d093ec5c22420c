package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rxdesk/pharmacy-backend/pkg/config"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
	healthTimeout   = time.Second
)

// DB is the pharmacy store handle. Repositories run their statements through
// Conn so they join the pharmacy scoped transaction opened by WithPharmacy.
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// New connects with the configured pool limits. Postgres often starts after
// the service under compose, so the first connect is retried a few times.
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	log = log.WithComponent("database")

	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable")
		if attempt < connectAttempts {
			time.Sleep(connectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to database")
	return Wrap(db, log), nil
}

// NewWithDSN connects once with default pool settings
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return Wrap(db, log), nil
}

// Wrap adopts an existing handle, e.g. one backed by sqlmock in tests
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: db, logger: log}
}

// Health pings the database and reports open connections
func (db *DB) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}

	stats := db.Stats()
	return map[string]string{
		"status":           "up",
		"open_connections": fmt.Sprint(stats.OpenConnections),
		"in_use":           fmt.Sprint(stats.InUse),
	}
}

// Transaction runs fn in a new transaction, rolling back when fn fails or
// panics
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			db.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		db.rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil {
		db.logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}
