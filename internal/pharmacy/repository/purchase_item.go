package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/dates"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// UnknownSupplier names a batch whose supplier cannot be traced
const UnknownSupplier = "Unknown"

// PurchaseItem is one line of a purchase invoice
type PurchaseItem struct {
	ID             string          `db:"id" json:"id"`
	PurchaseID     string          `db:"purchase_id" json:"purchase_id"`
	MedicineID     string          `db:"medicine_id" json:"medicine_id"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	ExpiryDate     dates.Date      `db:"expiry_date" json:"expiry_date"`
	Quantity       int             `db:"quantity" json:"quantity"`
	FreeQuantity   int             `db:"free_quantity" json:"free_quantity"`
	MRP            decimal.Decimal `db:"mrp" json:"mrp"`
	PurchaseRate   decimal.Decimal `db:"purchase_rate" json:"purchase_rate"`
	GrossAmount    decimal.Decimal `db:"gross_amount" json:"gross_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	NetAmount      decimal.Decimal `db:"net_amount" json:"net_amount"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PurchaseItemDetail is an item with the names a client shows next to it
type PurchaseItemDetail struct {
	PurchaseItem
	MedicineName  string     `db:"medicine_name" json:"medicine_name"`
	PurchaseDate  dates.Date `db:"purchase_date" json:"purchase_date"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	SupplierName  string     `db:"supplier_name" json:"supplier_name"`
}

// ItemChanges holds the item columns an edit touches. Nil fields stay as they are.
type ItemChanges struct {
	BatchNumber  *string
	ExpiryDate   *dates.Date
	Quantity     *int
	PurchaseRate *decimal.Decimal
	MRP          *decimal.Decimal
	GrossAmount  *decimal.Decimal
	NetAmount    *decimal.Decimal
}

// BatchKey identifies a stock batch of a medicine
type BatchKey struct {
	MedicineID  string
	BatchNumber string
	ExpiryDate  dates.Date
}

const purchaseItemColumns = `pi.id, pi.purchase_id, pi.medicine_id, pi.batch_number, pi.expiry_date,
	pi.quantity, pi.free_quantity, pi.mrp, pi.purchase_rate, pi.gross_amount, pi.discount_amount,
	pi.tax_amount, pi.net_amount, pi.created_at, pi.updated_at`

// PurchaseItemRepository handles purchase item persistence
type PurchaseItemRepository struct {
	db *database.DB
}

// NewPurchaseItemRepository creates a new purchase item repository
func NewPurchaseItemRepository(db *database.DB) *PurchaseItemRepository {
	return &PurchaseItemRepository{db: db}
}

// Create creates a new purchase item
func (r *PurchaseItemRepository) Create(ctx context.Context, item *PurchaseItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO purchase_items (
			id, purchase_id, medicine_id, batch_number, expiry_date, quantity, free_quantity,
			mrp, purchase_rate, gross_amount, discount_amount, tax_amount, net_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		item.ID, item.PurchaseID, item.MedicineID, item.BatchNumber, item.ExpiryDate, item.Quantity,
		item.FreeQuantity, item.MRP, item.PurchaseRate, item.GrossAmount, item.DiscountAmount,
		item.TaxAmount, item.NetAmount,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
}

// GetForPharmacy gets an item whose purchase belongs to the pharmacy
func (r *PurchaseItemRepository) GetForPharmacy(ctx context.Context, pharmacyID, id string) (*PurchaseItem, error) {
	var item PurchaseItem
	query := `
		SELECT ` + purchaseItemColumns + `
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		WHERE pi.id = $1 AND p.pharmacy_id = $2
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &item, query, id, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase item")
		}
		return nil, err
	}
	return &item, nil
}

// GetDetail gets an item joined with its medicine, purchase and supplier
func (r *PurchaseItemRepository) GetDetail(ctx context.Context, pharmacyID, id string) (*PurchaseItemDetail, error) {
	var detail PurchaseItemDetail
	query := `
		SELECT ` + purchaseItemColumns + `,
			m.name AS medicine_name,
			p.purchase_date,
			p.invoice_number,
			COALESCE(s.name, 'Unknown') AS supplier_name
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		JOIN medicines m ON m.id = pi.medicine_id
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE pi.id = $1 AND p.pharmacy_id = $2
	`
	if err := sqlx.GetContext(ctx, r.db.Conn(ctx), &detail, query, id, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase item")
		}
		return nil, err
	}
	return &detail, nil
}

// ListByPurchase lists the remaining items of a purchase
func (r *PurchaseItemRepository) ListByPurchase(ctx context.Context, purchaseID string) ([]*PurchaseItem, error) {
	query := `SELECT ` + purchaseItemColumns + ` FROM purchase_items pi WHERE pi.purchase_id = $1 ORDER BY pi.created_at`

	items := []*PurchaseItem{}
	if err := sqlx.SelectContext(ctx, r.db.Conn(ctx), &items, query, purchaseID); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies the non-nil changes to an item
func (r *PurchaseItemRepository) Update(ctx context.Context, id string, c ItemChanges) error {
	var set assignments
	if c.BatchNumber != nil {
		set.add("batch_number", *c.BatchNumber)
	}
	if c.ExpiryDate != nil {
		set.add("expiry_date", *c.ExpiryDate)
	}
	if c.Quantity != nil {
		set.add("quantity", *c.Quantity)
	}
	if c.PurchaseRate != nil {
		set.add("purchase_rate", *c.PurchaseRate)
	}
	if c.MRP != nil {
		set.add("mrp", *c.MRP)
	}
	if c.GrossAmount != nil {
		set.add("gross_amount", *c.GrossAmount)
	}
	if c.NetAmount != nil {
		set.add("net_amount", *c.NetAmount)
	}
	if set.empty() {
		return nil
	}

	query, args := set.update("purchase_items", "id", id)
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("purchase item")
	}
	return nil
}

// Delete deletes an item
func (r *PurchaseItemRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM purchase_items WHERE id = $1`
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("purchase item")
	}
	return nil
}

// LatestSupplierNames resolves, per batch, the supplier of the most recently
// created matching item. Batches without a match are absent from the result.
func (r *PurchaseItemRepository) LatestSupplierNames(ctx context.Context, pharmacyID string, keys []BatchKey) (map[BatchKey]string, error) {
	names := make(map[BatchKey]string, len(keys))
	if len(keys) == 0 {
		return names, nil
	}

	medicineIDs := make([]string, len(keys))
	batches := make([]string, len(keys))
	expiries := make([]string, len(keys))
	for i, k := range keys {
		medicineIDs[i] = k.MedicineID
		batches[i] = k.BatchNumber
		expiries[i] = k.ExpiryDate.String()
	}

	query := `
		SELECT DISTINCT ON (pi.medicine_id, pi.batch_number, pi.expiry_date)
			pi.medicine_id, pi.batch_number, pi.expiry_date,
			COALESCE(s.name, 'Unknown') AS supplier_name
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		JOIN unnest($2::uuid[], $3::text[], $4::date[]) AS k(medicine_id, batch_number, expiry_date)
			ON k.medicine_id = pi.medicine_id
			AND k.batch_number = pi.batch_number
			AND k.expiry_date = pi.expiry_date
		WHERE p.pharmacy_id = $1
		ORDER BY pi.medicine_id, pi.batch_number, pi.expiry_date, pi.created_at DESC
	`

	rows, err := r.db.Conn(ctx).QueryxContext(ctx, query,
		pharmacyID, pq.Array(medicineIDs), pq.Array(batches), pq.Array(expiries))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k    BatchKey
			name string
		)
		if err := rows.Scan(&k.MedicineID, &k.BatchNumber, &k.ExpiryDate, &name); err != nil {
			return nil, err
		}
		names[k] = name
	}
	return names, rows.Err()
}
