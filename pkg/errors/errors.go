package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels carried by AppError so callers can branch with Is
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("validation error")
	ErrNoPharmacy = errors.New("pharmacy scope missing")
)

// Codes returned to API clients in error.code
const (
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeValidation       = "VALIDATION_ERROR"
	CodePharmacyRequired = "PHARMACY_REQUIRED"
)

// MsgRequired is the detail reported for a missing field
const MsgRequired = "this field is required"

// AppError is an error with the HTTP status and client facing code it
// should be reported with. Err stays server side.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func newAppError(cause error, code string, status int, message string) *AppError {
	return &AppError{Err: cause, Code: code, StatusCode: status, Message: message}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource, e.g. NotFound("purchase item")
func NotFound(resource string) *AppError {
	return newAppError(ErrNotFound, CodeNotFound, http.StatusNotFound, resource+" not found")
}

func BadRequest(message string) *AppError {
	return newAppError(ErrBadRequest, CodeBadRequest, http.StatusBadRequest, message)
}

func Conflict(message string) *AppError {
	return newAppError(ErrConflict, CodeConflict, http.StatusConflict, message)
}

func Internal(message string) *AppError {
	return newAppError(ErrInternal, CodeInternal, http.StatusInternalServerError, message)
}

// InternalWrap keeps the cause for logs while the client only sees message
func InternalWrap(err error, message string) *AppError {
	return newAppError(err, CodeInternal, http.StatusInternalServerError, message)
}

// Validation reports per-field problems keyed by the request field name
func Validation(details map[string]string) *AppError {
	e := newAppError(ErrValidation, CodeValidation, http.StatusBadRequest, "validation failed")
	e.Details = details
	return e
}

// InvalidField is Validation for a single field
func InvalidField(field, problem string) *AppError {
	return Validation(map[string]string{field: problem})
}

// PharmacyRequired is returned when a request carries no pharmacy scope
// and no default is configured
func PharmacyRequired() *AppError {
	return newAppError(ErrNoPharmacy, CodePharmacyRequired, http.StatusBadRequest, "X-Pharmacy-ID header is required")
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound reports whether err carries ErrNotFound anywhere in its chain
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode is the HTTP status err should be reported with. Anything that
// is not an AppError is a 500.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
