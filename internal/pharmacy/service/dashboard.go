package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

const (
	dashboardExpiringDays = 30
	activityPurchases     = 3
	activityTransactions  = 2
	activityLimit         = 5
)

// Activity is one line of the dashboard feed
type Activity struct {
	ID     string    `json:"id"`
	Action string    `json:"action"`
	Time   string    `json:"time"`
	Type   string    `json:"type"`
	At     time.Time `json:"-"`
}

// DashboardStats is the landing page summary
type DashboardStats struct {
	TotalMedicines  int64      `json:"total_medicines"`
	TodaysPurchases int64      `json:"todays_purchases"`
	ExpiringSoon    int64      `json:"expiring_soon"`
	StockValue      int64      `json:"stock_value"`
	RecentActivity  []Activity `json:"recent_activity"`
}

// DashboardService assembles the landing page summary
type DashboardService struct {
	db     Scoper
	stores Stores
	logger *logger.Logger
	now    func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db Scoper, stores Stores, log *logger.Logger) *DashboardService {
	return &DashboardService{
		db:     db,
		stores: stores,
		logger: log.WithComponent("dashboard"),
		now:    time.Now,
	}
}

// Stats loads the independent figures concurrently, each in its own scope
func (s *DashboardService) Stats(ctx context.Context, pharmacyID string) (*DashboardStats, error) {
	now := s.now()
	today := dates.FromTime(now.UTC())
	stats := &DashboardStats{}

	var (
		todays    decimal.Decimal
		value     decimal.Decimal
		purchases []*repository.RecentPurchase
		ledger    []*repository.StockActivity
	)

	scoped := func(fn func(ctx context.Context) error) func(context.Context) error {
		return func(ctx context.Context) error {
			return s.db.WithPharmacy(ctx, pharmacyID, fn)
		}
	}

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(scoped(func(ctx context.Context) (err error) {
		stats.TotalMedicines, err = s.stores.Inventory.CountMedicinesInStock(ctx, pharmacyID)
		return err
	}))
	p.Go(scoped(func(ctx context.Context) error {
		totals, err := s.stores.Purchases.Totals(ctx, pharmacyID, today)
		if err != nil {
			return err
		}
		todays = totals.Today
		return nil
	}))
	p.Go(scoped(func(ctx context.Context) (err error) {
		stats.ExpiringSoon, err = s.stores.Inventory.CountExpiringBy(ctx, pharmacyID, today.AddDays(dashboardExpiringDays))
		return err
	}))
	p.Go(scoped(func(ctx context.Context) (err error) {
		value, err = s.stores.Inventory.StockValue(ctx, pharmacyID)
		return err
	}))
	p.Go(scoped(func(ctx context.Context) (err error) {
		purchases, err = s.stores.Purchases.Recent(ctx, pharmacyID, activityPurchases)
		return err
	}))
	p.Go(scoped(func(ctx context.Context) (err error) {
		ledger, err = s.stores.Ledger.Recent(ctx, pharmacyID, activityTransactions)
		return err
	}))

	if err := p.Wait(); err != nil {
		return nil, mapStoreError(s.logger, err, "failed to load dashboard")
	}

	stats.TodaysPurchases = todays.Round(0).IntPart()
	stats.StockValue = value.Round(0).IntPart()
	stats.RecentActivity = buildActivity(purchases, ledger, now)
	return stats, nil
}

func buildActivity(purchases []*repository.RecentPurchase, ledger []*repository.StockActivity, now time.Time) []Activity {
	feed := make([]Activity, 0, len(purchases)+len(ledger))
	for _, p := range purchases {
		feed = append(feed, Activity{
			ID:     "purchase-" + p.ID,
			Action: fmt.Sprintf("%s purchased (%d units) from %s", p.MedicineName, p.Quantity, p.Supplier),
			Time:   RelativeTime(p.CreatedAt, now),
			Type:   "purchase",
			At:     p.CreatedAt,
		})
	}
	for _, t := range ledger {
		feed = append(feed, Activity{
			ID:     "transaction-" + t.ID,
			Action: fmt.Sprintf("%s stock %s (%d units)", t.MedicineName, t.TransactionType, t.Quantity),
			Time:   RelativeTime(t.CreatedAt, now),
			Type:   "inventory",
			At:     t.CreatedAt,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].At.After(feed[j].At) })
	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	return feed
}

// RelativeTime renders how long ago t was, in whole minutes, hours or days
func RelativeTime(t, now time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	if minutes < 1 {
		return "Just now"
	}
	if minutes < 60 {
		return plural(minutes, "minute") + " ago"
	}
	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour") + " ago"
	}
	return plural(hours/24, "day") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
