package service

import (
	"context"
	"testing"
	"time"

	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = dates.New(2025, time.January, 15)

func fixedToday() dates.Date { return testToday }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func datePtr(d dates.Date) *dates.Date { return &d }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertAppError(t *testing.T, err error, code string) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func newTestPurchaseService(m *memDB) *PurchaseService {
	svc := NewPurchaseService(m, m.stores(), nil, logger.Nop())
	svc.today = fixedToday
	svc.now = func() time.Time { return m.clock }
	return svc
}

func newTestCascadeService(m *memDB) *CascadeService {
	svc := NewCascadeService(m, m.stores(), nil, logger.Nop())
	svc.today = fixedToday
	return svc
}

// seedPurchase records one invoice through the purchase service
func seedPurchase(t *testing.T, m *memDB, supplier string, items ...CreatePurchaseItemInput) *PurchaseWithItems {
	t.Helper()
	out, err := newTestPurchaseService(m).Create(context.Background(), testPharmacy, CreatePurchaseInput{
		SupplierName:  supplier,
		InvoiceNumber: "INV-" + supplier,
		Items:         items,
	})
	require.NoError(t, err)
	return out
}

func line(name, batch string, qty int, rate string, expiresIn int) CreatePurchaseItemInput {
	return CreatePurchaseItemInput{
		MedicineName: name,
		BatchNumber:  batch,
		Quantity:     qty,
		Rate:         dec(rate),
		MRP:          decPtr("20.00"),
		ExpiryDate:   testToday.AddDays(expiresIn),
	}
}
