package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/expiry"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
	"github.com/rxdesk/pharmacy-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertScanner_ScanPharmacy(t *testing.T) {
	m := newMemDB()
	seedExpiryStock(t, m)
	m.alerts["sold-out-item"] = &repository.ExpiryAlert{
		ID: "stale", PharmacyID: testPharmacy, PurchaseItemID: "sold-out-item",
	}

	publisher, sink := newPublisher()
	scanner := NewAlertScanner(m, m.stores(), publisher, logger.Nop())
	scanner.today = fixedToday

	result, err := scanner.ScanPharmacy(context.Background(), testPharmacy)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Scanned)
	assert.Equal(t, 4, result.Raised)
	assert.Zero(t, result.Refreshed)
	assert.EqualValues(t, 1, result.Cleared)
	assert.Len(t, m.alerts, 4)
	assert.NotContains(t, m.alerts, "sold-out-item")

	statuses := map[string]int{}
	for _, a := range m.alerts {
		statuses[a.Status]++
		_, want := expiry.Classify(a.ExpiryDate, testToday)
		assert.Equal(t, string(want), a.Status)
	}
	assert.Equal(t, 1, statuses[string(expiry.StatusExpired)])
	assert.Zero(t, statuses[string(expiry.StatusNormal)])

	require.Len(t, sink.Events(), 4)
	sink.AssertEventPublished(t, messaging.EventExpiryAlertRaised)

	t.Run("second scan refreshes", func(t *testing.T) {
		result, err := scanner.ScanPharmacy(context.Background(), testPharmacy)
		require.NoError(t, err)
		assert.Zero(t, result.Raised)
		assert.Equal(t, 4, result.Refreshed)
		assert.Zero(t, result.Cleared)
		assert.Len(t, sink.Events(), 4)
	})
}

func TestAlertScanner_ScanAll(t *testing.T) {
	m := newMemDB()
	seedExpiryStock(t, m)
	m.pharmacies = append(m.pharmacies, "22222222-2222-2222-2222-222222222222")

	scanner := NewAlertScanner(m, m.stores(), nil, logger.Nop())
	scanner.today = fixedToday

	require.NoError(t, scanner.ScanAll(context.Background()))
	assert.Len(t, m.alerts, 4)
}

func TestAlertScheduler_RunsInitialScan(t *testing.T) {
	m := newMemDB()
	seedExpiryStock(t, m)

	scanner := NewAlertScanner(m, m.stores(), nil, logger.Nop())
	scanner.today = fixedToday
	scheduler := NewAlertScheduler(scanner, time.Hour, logger.Nop())

	scheduler.Start(context.Background())
	testutil.RequireEventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.alerts) == 4
	}, 2*time.Second, 10*time.Millisecond, "initial scan did not raise alerts")
	scheduler.Stop()
}

func TestAlertScheduler_StopWithoutStart(t *testing.T) {
	m := newMemDB()
	scheduler := NewAlertScheduler(NewAlertScanner(m, m.stores(), nil, logger.Nop()), time.Hour, logger.Nop())
	assert.NotPanics(t, scheduler.Stop)
}

type countingSweeper struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSweeper) ScanAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingSweeper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestAlertScheduler_SweepsEveryInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	scheduler := NewAlertScheduler(sweeper, 10*time.Millisecond, logger.Nop())

	scheduler.Start(context.Background())
	testutil.RequireEventually(t, func() bool { return sweeper.count() >= 3 },
		2*time.Second, 5*time.Millisecond, "scheduler did not keep sweeping")
	scheduler.Stop()

	after := sweeper.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.count(), "no sweeps after Stop")
}
