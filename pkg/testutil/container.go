// Package testutil holds the pharmacy service's test helpers: a shared
// Postgres container with the pharmacy schema, sqlmock wrappers, fixtures
// and HTTP helpers.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the server version the schema is tested against
const PostgresImage = "postgres:15-alpine"

// PostgresContainer is a throwaway Postgres for integration tests
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig names the database created in the container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string
}

// DefaultPostgresConfig is the container every integration suite shares
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "rxdesk_test",
		Username: "rxdesk",
		Password: "rxdesk",
		Image:    PostgresImage,
	}
}

// NewPostgresContainer starts Postgres and waits until it accepts
// connections. Postgres logs the ready line twice: once for the init run and
// once for the real server.
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	defaults := DefaultPostgresConfig()
	if cfg.Image == "" {
		cfg.Image = defaults.Image
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.Username == "" {
		cfg.Username, cfg.Password = defaults.Username, defaults.Password
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=rxdesk-tests")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}

// Connect opens a raw handle, used by fixtures and assertions that must
// see rows across pharmacies
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Migrate applies the pharmacy schema. Every statement is idempotent so
// suites sharing the container can each call it.
func (c *PostgresContainer) Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range PharmacyMigrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pharmacy migration %d: %w", i+1, err)
		}
	}
	return nil
}
