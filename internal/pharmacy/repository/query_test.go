package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedTime = time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)

func TestAssignments_Update(t *testing.T) {
	var set assignments
	set.add("batch_number", "B")
	set.add("quantity", 5)

	query, args := set.update("purchase_items", "id", "item-1")
	assert.Equal(t, "UPDATE purchase_items SET batch_number = $1, quantity = $2, updated_at = NOW() WHERE id = $3", query)
	assert.Equal(t, []interface{}{"B", 5, "item-1"}, args)

	ledger := assignments{untimed: true}
	ledger.add("rate", "2.50")
	query, _ = ledger.update("stock_transactions", "purchase_item_id", "item-1")
	assert.Equal(t, "UPDATE stock_transactions SET rate = $1 WHERE purchase_item_id = $2", query)
}

func TestConditions(t *testing.T) {
	var where conditions
	assert.Empty(t, where.sql())

	where.raw("ci.is_active = true")
	where.add("m.name ILIKE $%d", "%para%")
	placeholder := where.arg(20)
	where.add("(m.name ILIKE $%[1]d OR m.generic_name ILIKE $%[1]d)", "%x%")

	assert.Equal(t, "$2", placeholder)
	assert.Equal(t, " WHERE ci.is_active = true AND m.name ILIKE $1 AND (m.name ILIKE $3 OR m.generic_name ILIKE $3)", where.sql())

	suffix, args := where.paginate(10, 20)
	assert.Equal(t, " LIMIT $4 OFFSET $5", suffix)
	assert.Equal(t, []interface{}{"%para%", 20, "%x%", 10, 20}, args)
	assert.Len(t, where.args, 3)
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, "%para%", likePattern("para"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, offset(0, 20))
	assert.Equal(t, 0, offset(1, 20))
	assert.Equal(t, 40, offset(3, 20))
	assert.Equal(t, 0, offset(3, 0))
}

func TestOffset_HugePageClampsInsteadOfOverflowing(t *testing.T) {
	off := offset(1<<62+1, 50)
	assert.Equal(t, maxOffset, off)
	assert.Positive(t, off)
}
