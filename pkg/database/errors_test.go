package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:    "not a postgres error",
			err:     fmt.Errorf("boom"),
			wantNil: true,
		},
		{
			name:       "duplicate supplier",
			err:        &pq.Error{Code: "23505", Constraint: "suppliers_pharmacy_name_key"},
			wantStatus: http.StatusConflict,
			wantMsg:    "a supplier with this name already exists",
		},
		{
			name:       "wrapped foreign key violation",
			err:        fmt.Errorf("insert item: %w", &pq.Error{Code: "23503"}),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "referenced record does not exist",
		},
		{
			name:       "quantity check",
			err:        &pq.Error{Code: "23514", Constraint: "purchase_items_quantity_positive"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "validation failed",
		},
		{
			name:    "unmapped code",
			err:     &pq.Error{Code: "40001"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPQError(tt.err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestMapPQError_CheckDetails(t *testing.T) {
	got := MapPQError(&pq.Error{Code: "23514", Constraint: "purchase_items_mrp_non_negative"})
	require.NotNil(t, got)
	assert.Equal(t, map[string]string{"mrp": "must not be negative"}, got.Details)
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("delete: %w", &pq.Error{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(fmt.Errorf("boom")))
}
