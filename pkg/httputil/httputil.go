package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rxdesk/pharmacy-backend/pkg/errors"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody represents an error in the response
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta contains pagination and other metadata
type Meta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewMeta builds pagination metadata for a page of total rows
func NewMeta(page, perPage int, total int64) *Meta {
	return &Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: TotalPages(total, perPage),
	}
}

// TotalPages returns the number of pages needed for total rows
func TotalPages(total int64, perPage int) int {
	if perPage < 1 {
		return 0
	}
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}

// maxBodyBytes bounds request bodies; purchase invoices are the largest
const maxBodyBytes = 1 << 20

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func succeeded(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// JSON wraps data in the response envelope
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{Success: succeeded(statusCode), Data: data})
}

// JSONWithMeta is JSON plus pagination metadata
func JSONWithMeta(w http.ResponseWriter, statusCode int, data interface{}, meta *Meta) {
	write(w, statusCode, Response{Success: succeeded(statusCode), Data: data, Meta: meta})
}

// Created responds 201 with data
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error reports err in the envelope. AppErrors keep their code, message and
// details; anything else becomes a generic 500 so internals never leak.
func Error(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.Internal("an unexpected error occurred")
	}

	write(w, appErr.StatusCode, Response{
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// DecodeJSON decodes a bounded request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.BadRequest("invalid JSON body")
	}
	return nil
}

// QueryInt reads an integer query parameter, falling back to def when it is
// missing, malformed or below one.
func QueryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// Pagination reads page and limit, applying defaults and the limit cap
func Pagination(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page = QueryInt(r, "page", 1)
	limit = QueryInt(r, "limit", defaultLimit)
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
