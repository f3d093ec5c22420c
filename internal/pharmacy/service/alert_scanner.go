package service

import (
	"context"
	"fmt"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/expiry"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// ScanResult summarises one expiry alert scan
type ScanResult struct {
	PharmacyID string `json:"pharmacy_id"`
	Scanned    int    `json:"scanned"`
	Raised     int    `json:"raised"`
	Refreshed  int    `json:"refreshed"`
	Cleared    int64  `json:"cleared"`
}

type raisedAlert struct {
	alert        *repository.ExpiryAlert
	medicineName string
}

// AlertScanner keeps expiry_alerts in line with live stock: every in-stock
// batch inside the alert window has one alert, nothing else has any
type AlertScanner struct {
	db        Scoper
	stores    Stores
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
	today     func() dates.Date
}

// NewAlertScanner creates a new alert scanner
func NewAlertScanner(db Scoper, stores Stores, publisher *events.PharmacyEventPublisher, log *logger.Logger) *AlertScanner {
	return &AlertScanner{
		db:        db,
		stores:    stores,
		publisher: publisher,
		logger:    log.WithComponent("alert_scanner"),
		today:     dates.Today,
	}
}

// ScanAll scans every active pharmacy. Logs errors but continues scanning.
func (s *AlertScanner) ScanAll(ctx context.Context) error {
	pharmacyIDs, err := s.stores.Pharmacies.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("ScanAll: list pharmacies: %w", err)
	}

	var lastErr error
	for _, pharmacyID := range pharmacyIDs {
		if _, err := s.ScanPharmacy(ctx, pharmacyID); err != nil {
			s.logger.WithPharmacyID(pharmacyID).WithError(err).Error().Msg("expiry alert scan failed")
			lastErr = err
		}
	}
	return lastErr
}

// ScanPharmacy refreshes the alerts of one pharmacy in a single transaction
func (s *AlertScanner) ScanPharmacy(ctx context.Context, pharmacyID string) (*ScanResult, error) {
	today := s.today()
	through := today.AddDays(expiry.AlertDays)
	result := &ScanResult{PharmacyID: pharmacyID}
	var raised []raisedAlert

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		rows, err := s.stores.Inventory.ListExpiring(ctx, pharmacyID, repository.ExpiryFilter{Through: &through})
		if err != nil {
			return err
		}

		keep := make([]string, 0, len(rows))
		for _, row := range rows {
			if row.PurchaseItemID == nil {
				continue
			}
			result.Scanned++

			days, status := expiry.Classify(row.ExpiryDate, today)
			alert := &repository.ExpiryAlert{
				PharmacyID:     pharmacyID,
				MedicineID:     row.MedicineID,
				PurchaseItemID: *row.PurchaseItemID,
				BatchNumber:    row.BatchNumber,
				ExpiryDate:     row.ExpiryDate,
				DaysToExpiry:   days,
				Status:         string(status),
			}

			inserted, err := s.stores.Alerts.Upsert(ctx, alert)
			if err != nil {
				return fmt.Errorf("upsert alert for item %s: %w", *row.PurchaseItemID, err)
			}
			keep = append(keep, *row.PurchaseItemID)

			if inserted {
				result.Raised++
				raised = append(raised, raisedAlert{alert: alert, medicineName: row.MedicineName})
			} else {
				result.Refreshed++
			}
		}

		result.Cleared, err = s.stores.Alerts.DeleteOutside(ctx, pharmacyID, keep)
		return err
	})
	if err != nil {
		return nil, mapStoreError(s.logger, err, "failed to scan expiry alerts")
	}

	for _, r := range raised {
		s.publisher.PublishExpiryAlertRaised(ctx, r.alert, r.medicineName)
	}

	s.logger.Info().
		Str("pharmacy_id", pharmacyID).
		Int("scanned", result.Scanned).
		Int("raised", result.Raised).
		Int64("cleared", result.Cleared).
		Msg("expiry alert scan completed")

	return result, nil
}
