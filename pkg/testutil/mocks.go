package testutil

import (
	"context"
	"database/sql/driver"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
)

// MockDB wraps sqlmock for easier testing
type MockDB struct {
	DB   *sqlx.DB
	Mock sqlmock.Sqlmock
	// Wrapped is the handle repositories take
	Wrapped *database.DB
}

// NewMockDB creates a new mock database for unit testing.
// Use this when you want to test repository logic without a real database.
//
// Usage:
//
//	mockDB := testutil.NewMockDB(t)
//	defer mockDB.Close()
//
//	// Set up expectations
//	mockDB.ExpectQuery("SELECT").WillReturnRows(...)
//
//	// Use mockDB.Wrapped with your repository
//	repo := repository.NewMedicineRepository(mockDB.Wrapped)
func NewMockDB(t *testing.T) *MockDB {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")

	return &MockDB{
		DB:      sqlxDB,
		Mock:    mock,
		Wrapped: database.Wrap(sqlxDB, logger.Nop()),
	}
}

// Close closes the mock database connection
func (m *MockDB) Close() error {
	return m.DB.Close()
}

// ExpectQuery sets up an expected query
func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Mock.ExpectQuery(regexp.QuoteMeta(query))
}

// ExpectExec sets up an expected exec
func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Mock.ExpectExec(regexp.QuoteMeta(query))
}

// ExpectBegin sets up an expected transaction begin
func (m *MockDB) ExpectBegin() *sqlmock.ExpectedBegin {
	return m.Mock.ExpectBegin()
}

// ExpectCommit sets up an expected commit
func (m *MockDB) ExpectCommit() *sqlmock.ExpectedCommit {
	return m.Mock.ExpectCommit()
}

// ExpectRollback sets up an expected rollback
func (m *MockDB) ExpectRollback() *sqlmock.ExpectedRollback {
	return m.Mock.ExpectRollback()
}

// ExpectPharmacyScope sets up the begin + set_config pair that opens every
// pharmacy scoped transaction.
//
// Usage:
//
//	mockDB.ExpectPharmacyScope(pharmacyID)
//	mockDB.ExpectQuery("SELECT ...").WillReturnRows(...)
//	mockDB.ExpectCommit()
func (m *MockDB) ExpectPharmacyScope(pharmacyID string) {
	m.Mock.ExpectBegin()
	m.Mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('app.current_pharmacy', $1, true)")).
		WithArgs(pharmacyID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectSavepoint sets up a savepoint that is released after the statements
// registered by fn
func (m *MockDB) ExpectSavepoint(name string, fn func()) {
	m.Mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT " + name)).WillReturnResult(sqlmock.NewResult(0, 0))
	fn()
	m.Mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT " + name)).WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectFailedSavepoint sets up a savepoint that is rolled back after the
// statements registered by fn
func (m *MockDB) ExpectFailedSavepoint(name string, fn func()) {
	m.Mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT " + name)).WillReturnResult(sqlmock.NewResult(0, 0))
	fn()
	m.Mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT " + name)).WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectationsWereMet verifies all expectations were met
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// MockRows creates a new mock rows object
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

// AnyTime is a matcher for any time.Time value
type AnyTime struct{}

// Match satisfies the sqlmock.Argument interface
func (a AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// AnyUUID is a matcher for any UUID string
type AnyUUID struct{}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Match satisfies the sqlmock.Argument interface
func (a AnyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && uuidPattern.MatchString(s)
}

// AnyArg matches every value
type AnyArg struct{}

// Match satisfies the sqlmock.Argument interface
func (a AnyArg) Match(driver.Value) bool {
	return true
}

// MockPublisher is a mock event publisher for testing
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []PublishedEvent
	Err             error
}

// PublishedEvent represents an event that was published
type PublishedEvent struct {
	Type          string
	Payload       interface{}
	CorrelationID string
}

// NewMockPublisher creates a new mock publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishedEvents: make([]PublishedEvent, 0),
	}
}

// Publish records an event for later verification
func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{
		Type:          eventType,
		Payload:       payload,
		CorrelationID: messaging.CorrelationID(ctx),
	})
	return nil
}

// Events returns a copy of the events published so far
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.PublishedEvents...)
}

// AssertEventPublished checks if an event of the given type was published
func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, e := range m.Events() {
		if e.Type == eventType {
			return
		}
	}
	t.Errorf("expected event %q to be published, but it wasn't", eventType)
}

// AssertNoEvents checks that nothing was published
func (m *MockPublisher) AssertNoEvents(t *testing.T) {
	t.Helper()
	if events := m.Events(); len(events) > 0 {
		t.Errorf("expected no events, got %d (first %q)", len(events), events[0].Type)
	}
}
