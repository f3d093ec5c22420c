// Package scope carries the pharmacy a request operates on.
//
// Middleware resolves the pharmacy once per request. Handlers read it back
// and pass it to services as an explicit argument; nothing below the
// handler layer looks it up from the context.
package scope

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const pharmacyIDKey contextKey = "pharmacy_id"

var (
	// ErrNoPharmacyInContext is returned when the pharmacy scope is missing
	ErrNoPharmacyInContext = errors.New("no pharmacy in context")
)

// WithPharmacyID adds the pharmacy ID to context
func WithPharmacyID(ctx context.Context, pharmacyID string) context.Context {
	return context.WithValue(ctx, pharmacyIDKey, pharmacyID)
}

// PharmacyID extracts the pharmacy ID from context
func PharmacyID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(pharmacyIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoPharmacyInContext
	}
	return id, nil
}
