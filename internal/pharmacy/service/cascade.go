package service

import (
	"context"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/events"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/expiry"
	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// UpdateItemInput is an edit of one purchase line. Nil fields are left alone.
type UpdateItemInput struct {
	PurchaseItemID string
	MedicineName   *string
	Quantity       *int
	PurchaseRate   *decimal.Decimal
	MRP            *decimal.Decimal
	BatchNumber    *string
	ExpiryDate     *dates.Date
}

// fields lists the supplied field names in request order
func (in UpdateItemInput) fields() []string {
	var f []string
	if in.MedicineName != nil {
		f = append(f, "medicine_name")
	}
	if in.Quantity != nil {
		f = append(f, "quantity")
	}
	if in.PurchaseRate != nil {
		f = append(f, "purchase_rate")
	}
	if in.MRP != nil {
		f = append(f, "mrp")
	}
	if in.BatchNumber != nil {
		f = append(f, "batch_number")
	}
	if in.ExpiryDate != nil {
		f = append(f, "expiry_date")
	}
	return f
}

func (in UpdateItemInput) validate() error {
	details := map[string]string{}
	if in.PurchaseItemID == "" {
		details["purchase_item_id"] = errors.MsgRequired
	}
	if in.MedicineName != nil && strings.TrimSpace(*in.MedicineName) == "" {
		details["medicine_name"] = "Must not be empty"
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		details["quantity"] = "Must be greater than 0"
	}
	if in.PurchaseRate != nil && in.PurchaseRate.IsNegative() {
		details["purchase_rate"] = "Must not be negative"
	}
	if in.MRP != nil && in.MRP.IsNegative() {
		details["mrp"] = "Must not be negative"
	}
	if in.BatchNumber != nil && strings.TrimSpace(*in.BatchNumber) == "" {
		details["batch_number"] = "Must not be empty"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// DeleteItemResult reports what a line deletion removed besides the line
type DeleteItemResult struct {
	PurchaseItemID  string `json:"purchase_item_id"`
	PurchaseID      string `json:"purchase_id"`
	MedicineID      string `json:"medicine_id"`
	PurchaseDeleted bool   `json:"purchase_deleted"`
	MedicineRemoved bool   `json:"medicine_removed"`
}

// CascadeService edits and deletes purchase lines while keeping the stock
// rows they own, the invoice total and the medicine catalog consistent.
// Every mutation runs in one pharmacy scoped transaction. Events go out
// after commit.
type CascadeService struct {
	db        Scoper
	stores    Stores
	totals    *TotalsRecalculator
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
	today     func() dates.Date
}

// NewCascadeService creates a new cascade service
func NewCascadeService(db Scoper, stores Stores, publisher *events.PharmacyEventPublisher, log *logger.Logger) *CascadeService {
	return &CascadeService{
		db:        db,
		stores:    stores,
		totals:    NewTotalsRecalculator(stores.Purchases, stores.Items),
		publisher: publisher,
		logger:    log.WithComponent("cascade"),
		today:     dates.Today,
	}
}

// UpdateItem applies an edit to a line and every row derived from it
func (s *CascadeService) UpdateItem(ctx context.Context, pharmacyID string, in UpdateItemInput) (*repository.PurchaseItemDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		detail *repository.PurchaseItemDetail
		total  decimal.Decimal
	)

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		item, err := s.stores.Items.GetForPharmacy(ctx, pharmacyID, in.PurchaseItemID)
		if err != nil {
			return err
		}

		if in.MedicineName != nil {
			if err := s.stores.Medicines.Rename(ctx, item.MedicineID, strings.TrimSpace(*in.MedicineName)); err != nil {
				return err
			}
		}

		itemChanges := repository.ItemChanges{
			BatchNumber:  in.BatchNumber,
			ExpiryDate:   in.ExpiryDate,
			Quantity:     in.Quantity,
			PurchaseRate: in.PurchaseRate,
			MRP:          in.MRP,
		}
		owned := repository.OwnedChanges{
			BatchNumber: in.BatchNumber,
			ExpiryDate:  in.ExpiryDate,
			Quantity:    in.Quantity,
			Rate:        in.PurchaseRate,
			MRP:         in.MRP,
		}

		if in.Quantity != nil || in.PurchaseRate != nil {
			quantity := item.Quantity
			if in.Quantity != nil {
				quantity = *in.Quantity
			}
			rate := item.PurchaseRate
			if in.PurchaseRate != nil {
				rate = *in.PurchaseRate
			}

			gross := rate.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
			net := gross.Sub(item.DiscountAmount).Add(item.TaxAmount)
			itemChanges.GrossAmount = &gross
			itemChanges.NetAmount = &net
			owned.Amount = &gross
		}

		if err := s.stores.Items.Update(ctx, item.ID, itemChanges); err != nil {
			return err
		}

		if _, err := s.stores.Inventory.UpdateOwned(ctx, item.ID, owned); err != nil {
			return err
		}
		if _, err := s.stores.Ledger.UpdateOwned(ctx, item.ID, owned); err != nil {
			return err
		}

		alert := repository.AlertChanges{BatchNumber: in.BatchNumber, ExpiryDate: in.ExpiryDate}
		if in.ExpiryDate != nil {
			days, status := expiry.Classify(*in.ExpiryDate, s.today())
			st := string(status)
			alert.DaysToExpiry = &days
			alert.Status = &st
		}
		if err := s.stores.Alerts.UpdateOwned(ctx, item.ID, alert); err != nil {
			s.partialFailure(err, "expiry_alerts update", item.ID)
		}

		if in.Quantity != nil || in.PurchaseRate != nil || in.MRP != nil {
			if total, _, err = s.totals.Recalculate(ctx, item.PurchaseID); err != nil {
				return err
			}
		}

		detail, err = s.stores.Items.GetDetail(ctx, pharmacyID, item.ID)
		return err
	})
	if err != nil {
		return nil, s.mapError(err, "failed to update purchase item")
	}

	s.logger.Info().
		Str("pharmacy_id", pharmacyID).
		Str("purchase_item_id", detail.ID).
		Strs("fields", in.fields()).
		Msg("purchase item updated")

	s.publisher.PublishItemUpdated(ctx, pharmacyID, detail, in.fields(), total)
	return detail, nil
}

// DeleteItem removes a line with the rows it owns, drops its medicine when
// nothing references it any more and removes the invoice when it was the
// last line
func (s *CascadeService) DeleteItem(ctx context.Context, pharmacyID, purchaseItemID string) (*DeleteItemResult, error) {
	if purchaseItemID == "" {
		return nil, errors.InvalidField("purchase_item_id", errors.MsgRequired)
	}

	result := &DeleteItemResult{PurchaseItemID: purchaseItemID}
	var medicine *repository.Medicine

	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		item, err := s.stores.Items.GetForPharmacy(ctx, pharmacyID, purchaseItemID)
		if err != nil {
			return err
		}
		result.PurchaseID = item.PurchaseID

		if err := s.stores.Items.Delete(ctx, item.ID); err != nil {
			return err
		}
		if _, err := s.stores.Inventory.DeleteByPurchaseItem(ctx, item.ID); err != nil {
			return err
		}
		if _, err := s.stores.Ledger.DeleteByPurchaseItem(ctx, item.ID); err != nil {
			return err
		}
		if err := s.stores.Alerts.DeleteByPurchaseItem(ctx, item.ID); err != nil {
			s.partialFailure(err, "expiry_alerts delete", item.ID)
		}

		if !s.stores.References.MedicineReferenced(ctx, item.MedicineID) {
			medicine, err = s.stores.Medicines.GetByID(ctx, item.MedicineID)
			if err != nil {
				return err
			}
			if result.MedicineRemoved, err = s.stores.Medicines.DeleteOrphan(ctx, item.MedicineID); err != nil {
				return err
			}
		}

		result.MedicineID = item.MedicineID
		_, result.PurchaseDeleted, err = s.totals.Recalculate(ctx, item.PurchaseID)
		return err
	})
	if err != nil {
		return nil, s.mapError(err, "failed to delete purchase item")
	}

	s.logger.Info().
		Str("pharmacy_id", pharmacyID).
		Str("purchase_item_id", purchaseItemID).
		Bool("purchase_deleted", result.PurchaseDeleted).
		Bool("medicine_removed", result.MedicineRemoved).
		Msg("purchase item deleted")

	s.publisher.PublishItemDeleted(ctx, messaging.PurchaseItemDeletedEvent{
		PharmacyID:      pharmacyID,
		PurchaseID:      result.PurchaseID,
		PurchaseItemID:  result.PurchaseItemID,
		MedicineID:      result.MedicineID,
		PurchaseDeleted: result.PurchaseDeleted,
		MedicineRemoved: result.MedicineRemoved,
	})
	if result.MedicineRemoved {
		s.publisher.PublishMedicineRemoved(ctx, medicine.ID, medicine.Name)
	}
	return result, nil
}

// partialFailure records a best-effort step that did not complete
func (s *CascadeService) partialFailure(err error, step, purchaseItemID string) {
	s.logger.Warn().
		Err(err).
		Str("step", step).
		Str("purchase_item_id", purchaseItemID).
		Msg("partial cascade failure")
}

func (s *CascadeService) mapError(err error, message string) error {
	return mapStoreError(s.logger, err, message)
}
