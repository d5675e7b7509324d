package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormStockHistoryRepository implements StockHistoryRepository using GORM.
// History is append-only; entries are never updated after the write.
type GormStockHistoryRepository struct {
	db *gorm.DB
}

// NewGormStockHistoryRepository creates a new GormStockHistoryRepository
func NewGormStockHistoryRepository(db *gorm.DB) *GormStockHistoryRepository {
	return &GormStockHistoryRepository{db: db}
}

// Append writes one history entry
func (r *GormStockHistoryRepository) Append(ctx context.Context, entry *inventory.StockHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByItem finds history for one item, newest first
func (r *GormStockHistoryRepository) FindByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]inventory.StockHistoryEntry, error) {
	var entries []inventory.StockHistoryEntry
	query := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormStockHistoryRepository implements StockHistoryRepository
var _ inventory.StockHistoryRepository = (*GormStockHistoryRepository)(nil)
