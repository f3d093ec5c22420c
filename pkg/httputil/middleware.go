package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
	"github.com/rxdesk/pharmacy-backend/pkg/scope"
)

type contextKey string

// RequestIDKey holds the request ID in a request context
const RequestIDKey contextKey = "request_id"

const (
	// PharmacyHeader carries the pharmacy a request is scoped to
	PharmacyHeader = "X-Pharmacy-ID"
	// RequestIDHeader is echoed back on every response
	RequestIDHeader = "X-Request-ID"
)

// RequestID reuses the caller's X-Request-ID or mints one
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, id)))
	})
}

// GetRequestID returns the ID set by RequestID, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Logger writes one line per request. Server errors log at error level and
// client errors at warn, so a 4xx burst is visible without debug logs.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithLevel(levelFor(rec.status)).
				Str("request_id", GetRequestID(r.Context())).
				Str("pharmacy_id", r.Header.Get(PharmacyHeader)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int("bytes", rec.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Recoverer turns a handler panic into a masked 500
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.WithRequestID(GetRequestID(r.Context())).Error().
						Interface("panic", p).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.written += n
	return n, err
}

// PharmacyMiddleware scopes the request to the pharmacy in X-Pharmacy-ID,
// or to defaultID when the header is absent. The ID must be a UUID and is
// passed on in canonical form.
func PharmacyMiddleware(defaultID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(PharmacyHeader)
			if raw == "" {
				raw = defaultID
			}
			if raw == "" {
				Error(w, errors.PharmacyRequired())
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				Error(w, errors.InvalidField(PharmacyHeader, "must be a valid UUID"))
				return
			}

			next.ServeHTTP(w, r.WithContext(scope.WithPharmacyID(r.Context(), id.String())))
		})
	}
}
