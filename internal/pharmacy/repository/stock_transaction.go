package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/shopspring/decimal"
)

// TransactionTypePurchase records stock received on a purchase invoice
const TransactionTypePurchase = "purchase"

// StockTransaction is one stock movement in the ledger
type StockTransaction struct {
	ID              string          `db:"id" json:"id"`
	PharmacyID      string          `db:"pharmacy_id" json:"pharmacy_id"`
	MedicineID      string          `db:"medicine_id" json:"medicine_id"`
	PurchaseItemID  *string         `db:"purchase_item_id" json:"purchase_item_id,omitempty"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	BatchNumber     string          `db:"batch_number" json:"batch_number"`
	ExpiryDate      dates.Date      `db:"expiry_date" json:"expiry_date"`
	QuantityIn      int             `db:"quantity_in" json:"quantity_in"`
	QuantityOut     int             `db:"quantity_out" json:"quantity_out"`
	Rate            decimal.Decimal `db:"rate" json:"rate"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// StockActivity is a ledger entry as shown in the activity feed
type StockActivity struct {
	ID              string    `db:"id"`
	MedicineName    string    `db:"medicine_name"`
	TransactionType string    `db:"transaction_type"`
	Quantity        int       `db:"quantity"`
	CreatedAt       time.Time `db:"created_at"`
}

// StockTransactionRepository handles stock ledger persistence
type StockTransactionRepository struct {
	db *database.DB
}

// NewStockTransactionRepository creates a new stock transaction repository
func NewStockTransactionRepository(db *database.DB) *StockTransactionRepository {
	return &StockTransactionRepository{db: db}
}

// Create creates a new ledger entry
func (r *StockTransactionRepository) Create(ctx context.Context, t *StockTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_transactions (
			id, pharmacy_id, medicine_id, purchase_item_id, transaction_type, batch_number,
			expiry_date, quantity_in, quantity_out, rate, amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		t.ID, t.PharmacyID, t.MedicineID, t.PurchaseItemID, t.TransactionType, t.BatchNumber,
		t.ExpiryDate, t.QuantityIn, t.QuantityOut, t.Rate, t.Amount,
	).Scan(&t.CreatedAt)
}

// UpdateOwned propagates item edits to the entries owned by a purchase item
func (r *StockTransactionRepository) UpdateOwned(ctx context.Context, purchaseItemID string, c OwnedChanges) (int64, error) {
	// the ledger has no updated_at column
	set := assignments{untimed: true}
	if c.BatchNumber != nil {
		set.add("batch_number", *c.BatchNumber)
	}
	if c.ExpiryDate != nil {
		set.add("expiry_date", *c.ExpiryDate)
	}
	if c.Quantity != nil {
		set.add("quantity_in", *c.Quantity)
	}
	if c.Rate != nil {
		set.add("rate", *c.Rate)
	}
	if c.Amount != nil {
		set.add("amount", *c.Amount)
	}
	if set.empty() {
		return 0, nil
	}

	query, args := set.update("stock_transactions", "purchase_item_id", purchaseItemID)
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByPurchaseItem deletes the entries owned by a purchase item
func (r *StockTransactionRepository) DeleteByPurchaseItem(ctx context.Context, purchaseItemID string) (int64, error) {
	result, err := r.db.Conn(ctx).ExecContext(ctx,
		`DELETE FROM stock_transactions WHERE purchase_item_id = $1`, purchaseItemID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Recent lists the newest ledger entries with their medicine names
func (r *StockTransactionRepository) Recent(ctx context.Context, pharmacyID string, limit int) ([]*StockActivity, error) {
	query := `
		SELECT st.id, m.name AS medicine_name, st.transaction_type,
			GREATEST(st.quantity_in, st.quantity_out) AS quantity, st.created_at
		FROM stock_transactions st
		JOIN medicines m ON m.id = st.medicine_id
		WHERE st.pharmacy_id = $1
		ORDER BY st.created_at DESC
		LIMIT $2
	`

	activity := []*StockActivity{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &activity, query, pharmacyID, limit); err != nil {
		return nil, err
	}
	return activity, nil
}
