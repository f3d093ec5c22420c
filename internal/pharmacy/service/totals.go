package service

import (
	"context"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/shopspring/decimal"
)

// LineAmount is what a line contributes to its invoice: the net amount when
// positive, quantity times purchase rate otherwise
func LineAmount(item *repository.PurchaseItem) decimal.Decimal {
	if item.NetAmount.IsPositive() {
		return item.NetAmount
	}
	return item.PurchaseRate.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// PurchaseTotal sums the line amounts of an invoice
func PurchaseTotal(items []*repository.PurchaseItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineAmount(item))
	}
	return total.Round(2)
}

// TotalsRecalculator keeps purchases.total_amount equal to the sum of its
// remaining lines and removes invoices that have none left
type TotalsRecalculator struct {
	purchases PurchaseStore
	items     PurchaseItemStore
}

// NewTotalsRecalculator creates a new recalculator
func NewTotalsRecalculator(purchases PurchaseStore, items PurchaseItemStore) *TotalsRecalculator {
	return &TotalsRecalculator{purchases: purchases, items: items}
}

// Recalculate persists the invoice total. When no line is left the invoice
// is deleted and deleted is true.
func (r *TotalsRecalculator) Recalculate(ctx context.Context, purchaseID string) (total decimal.Decimal, deleted bool, err error) {
	items, err := r.items.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return decimal.Zero, false, err
	}

	if len(items) == 0 {
		if err := r.purchases.Delete(ctx, purchaseID); err != nil {
			return decimal.Zero, false, err
		}
		return decimal.Zero, true, nil
	}

	total = PurchaseTotal(items)
	if err := r.purchases.UpdateTotal(ctx, purchaseID, total); err != nil {
		return decimal.Zero, false, err
	}
	return total, false, nil
}
