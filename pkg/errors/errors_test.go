package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	err := NotFound("purchase")

	assert.Equal(t, "purchase not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("loading: %w", err)))
}

func TestAppError_As(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Validation(map[string]string{"qty": "must be greater than 0"}))

	var appErr *AppError
	require.True(t, As(wrapped, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "must be greater than 0", appErr.Details["qty"])
}

func TestInternalWrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := InternalWrap(cause, "failed to update purchase")

	assert.Equal(t, "failed to update purchase: connection reset", err.Error())
	assert.True(t, Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
}

func TestPharmacyRequired(t *testing.T) {
	err := PharmacyRequired()
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.True(t, Is(err, ErrNoPharmacy))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(fmt.Errorf("scan: %w", NotFound("pharmacy"))))
	assert.Equal(t, http.StatusBadRequest, StatusCode(InvalidField("quantity", "must be greater than 0")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(fmt.Errorf("boom")))
}

func TestInvalidField(t *testing.T) {
	err := InvalidField("expiry_date", MsgRequired)
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, map[string]string{"expiry_date": "this field is required"}, err.Details)
}
