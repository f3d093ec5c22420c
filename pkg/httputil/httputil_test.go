package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.NotFound("purchase item"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "purchase item not found", resp.Error.Message)
}

func TestError_MasksUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "an unexpected error occurred", resp.Error.Message)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 10},
		{"page=3&limit=25", 3, 25},
		{"page=0&limit=-4", 1, 10},
		{"page=abc&limit=500", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, limit := Pagination(r, 10, 50)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestValidate(t *testing.T) {
	type req struct {
		Name     string `json:"name" validate:"required"`
		Quantity int    `json:"quantity" validate:"gt=0"`
	}

	err := Validate(req{Quantity: 0})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["name"])
	assert.Equal(t, "must be greater than 0", appErr.Details["quantity"])

	assert.NoError(t, Validate(req{Name: "Paracetamol", Quantity: 1}))
}

func TestPharmacyMiddleware(t *testing.T) {
	const pharmacyID = "8f1c2f2e-9a57-4d55-a6b6-2c1f4f1d0a11"

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = scope.PharmacyID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("header wins", func(t *testing.T) {
		seen = ""
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(PharmacyHeader, pharmacyID)
		rec := httptest.NewRecorder()
		PharmacyMiddleware("")(next).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pharmacyID, seen)
	})

	t.Run("falls back to default", func(t *testing.T) {
		seen = ""
		rec := httptest.NewRecorder()
		PharmacyMiddleware(pharmacyID)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pharmacyID, seen)
	})

	t.Run("missing scope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		PharmacyMiddleware("")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PHARMACY_REQUIRED", decode(t, rec).Error.Code)
	})

	t.Run("canonicalises the id", func(t *testing.T) {
		seen = ""
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(PharmacyHeader, strings.ToUpper(pharmacyID))
		rec := httptest.NewRecorder()
		PharmacyMiddleware("")(next).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pharmacyID, seen)
	})

	t.Run("malformed id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(PharmacyHeader, "first-pharmacy")
		rec := httptest.NewRecorder()
		PharmacyMiddleware("")(next).ServeHTTP(rec, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "INTERNAL_ERROR"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "req-7", seen)
	assert.Equal(t, "req-7", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, levelFor(http.StatusCreated))
	assert.Equal(t, zerolog.WarnLevel, levelFor(http.StatusNotFound))
	assert.Equal(t, zerolog.ErrorLevel, levelFor(http.StatusBadGateway))
}
