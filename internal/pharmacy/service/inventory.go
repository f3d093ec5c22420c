package service

import (
	"context"
	"strings"

	"github.com/rxdesk/pharmacy-backend/internal/pharmacy/repository"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// InventoryQuery filters the stock summary
type InventoryQuery struct {
	Search   string
	LowStock bool
	Page     int
	Limit    int
}

// InventoryService reports stock on hand per medicine
type InventoryService struct {
	db                Scoper
	inventory         InventoryStore
	lowStockThreshold int
	logger            *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(db Scoper, stores Stores, lowStockThreshold int, log *logger.Logger) *InventoryService {
	return &InventoryService{
		db:                db,
		inventory:         stores.Inventory,
		lowStockThreshold: lowStockThreshold,
		logger:            log.WithComponent("inventory"),
	}
}

// Summary aggregates live batches per medicine, ordered by medicine name
func (s *InventoryService) Summary(ctx context.Context, pharmacyID string, q InventoryQuery) ([]*repository.StockSummary, int64, error) {
	var (
		rows  []*repository.StockSummary
		total int64
	)
	err := s.db.WithPharmacy(ctx, pharmacyID, func(ctx context.Context) error {
		var err error
		rows, total, err = s.inventory.Summary(ctx, pharmacyID, strings.TrimSpace(q.Search),
			s.lowStockThreshold, q.LowStock, q.Page, q.Limit)
		return err
	})
	if err != nil {
		return nil, 0, mapStoreError(s.logger, err, "failed to load inventory")
	}
	return rows, total, nil
}
