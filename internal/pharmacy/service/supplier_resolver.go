package service

import (
	"context"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
)

// SupplierResolver attributes stock batches to the supplier that delivered
// them most recently
type SupplierResolver struct {
	items PurchaseItemStore
}

// NewSupplierResolver creates a new resolver
func NewSupplierResolver(items PurchaseItemStore) *SupplierResolver {
	return &SupplierResolver{items: items}
}

// Resolve returns a supplier name for every key. Keys no purchase line
// matches resolve to "Unknown".
func (r *SupplierResolver) Resolve(ctx context.Context, pharmacyID string, keys []repository.BatchKey) (map[repository.BatchKey]string, error) {
	seen := make(map[repository.BatchKey]bool, len(keys))
	unique := make([]repository.BatchKey, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	found, err := r.items.LatestSupplierNames(ctx, pharmacyID, unique)
	if err != nil {
		return nil, err
	}

	names := make(map[repository.BatchKey]string, len(unique))
	for _, k := range unique {
		if name, ok := found[k]; ok && name != "" {
			names[k] = name
		} else {
			names[k] = repository.UnknownSupplier
		}
	}
	return names, nil
}

// SupplierMatches reports whether name contains filter, ignoring case.
// An empty filter matches everything.
func SupplierMatches(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}
