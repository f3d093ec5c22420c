package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rxdesk/pharmacy-backend/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewHTTPRequest builds a handler request. Non-nil bodies are sent as JSON;
// pass a string to send it verbatim.
func NewHTTPRequest(method, path string, body interface{}) *http.Request {
	var payload io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		payload = bytes.NewBufferString(b)
	default:
		encoded, _ := json.Marshal(b)
		payload = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, payload)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// WithPharmacyHeader scopes req to pharmacyID; an empty ID leaves it unscoped
func WithPharmacyHeader(req *http.Request, pharmacyID string) *http.Request {
	if pharmacyID != "" {
		req.Header.Set(httputil.PharmacyHeader, pharmacyID)
	}
	return req
}

// ExecuteRequest serves req and returns the recorded response
func ExecuteRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// AssertStatus checks the status code and prints the body on mismatch
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "body: %s", rr.Body.String())
}

// ParseJSONBody decodes the recorded body into target or fails the test
func ParseJSONBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), target), "body: %s", rr.Body.String())
}

// ContextWithTimeout returns a context cancelled at the end of the test
func ContextWithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx, cancel
}

// RequireEventually polls condition until it holds, failing with msg after
// timeout
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msg string) {
	t.Helper()
	require.Eventually(t, condition, timeout, interval, msg)
}

// SkipIfShort skips container backed tests under -short
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
