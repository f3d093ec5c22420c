package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite backed by the
// shared container, with the pharmacy schema applied.
//
// Usage:
//
//	func TestCascade(t *testing.T) {
//	    suite := testutil.RequireIntegrationSuite(t)
//	    pharmacyID := suite.SetupPharmacy(t, ctx, "Test Pharmacy")
//	    // ... run tests against suite.DB
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := container.Migrate(ctx, db); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(db),
		Logger:    log,
	}, nil
}

// RequireIntegrationSuite returns a suite or skips the test when running
// with -short or when no container runtime is reachable
func RequireIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	SkipIfShort(t)

	ctx, _ := ContextWithTimeout(t, 2*time.Minute)
	suite, err := NewIntegrationSuite(ctx)
	if err != nil {
		t.Skipf("skipping integration test, postgres container unavailable: %v", err)
	}
	return suite
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		// some docker host lookups panic instead of returning an error
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("container runtime unavailable: %v", r)
			}
		}()

		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupPharmacy creates a pharmacy for a specific test and removes its rows
// when the test ends. Each test should use its own pharmacy for isolation.
func (s *IntegrationSuite) SetupPharmacy(t *testing.T, ctx context.Context, name string) string {
	t.Helper()

	id, err := s.Fixtures.Pharmacy(ctx, name)
	if err != nil {
		t.Fatalf("failed to create pharmacy: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Fixtures.DropPharmacy(context.Background(), id); err != nil {
			t.Logf("warning: failed to drop pharmacy %s: %v", id, err)
		}
	})

	return id
}

// TerminateContainer stops the shared container, if one was started.
// Call it from TestMain after m.Run.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		_ = globalDB.Close()
	}
	if globalContainer != nil {
		_ = globalContainer.Terminate(ctx)
	}
}
