package persistence

import (
	"context"
	"errors"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"gorm.io/gorm"
)

// GormExternalStockItemRepository implements ExternalStockItemRepository using GORM
type GormExternalStockItemRepository struct {
	db *gorm.DB
}

// NewGormExternalStockItemRepository creates a new GormExternalStockItemRepository
func NewGormExternalStockItemRepository(db *gorm.DB) *GormExternalStockItemRepository {
	return &GormExternalStockItemRepository{db: db}
}

// UpsertByNaturalKey creates the mirror or refreshes the row with the same
// (source, external SKU), preserving identity and processing state
func (r *GormExternalStockItemRepository) UpsertByNaturalKey(ctx context.Context, item *sync.ExternalStockItem) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sync.ExternalStockItem
		err := tx.Where("source = ? AND external_sku = ?", item.Source, item.ExternalSKU).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(item).Error
		}
		if err != nil {
			return err
		}

		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		item.Version = existing.Version + 1
		item.StockProcessed = existing.StockProcessed
		item.StockProcessedAt = existing.StockProcessedAt
		return tx.Save(item).Error
	})
	return created, err
}

// FindByNaturalKey finds a mirror by its business key
func (r *GormExternalStockItemRepository) FindByNaturalKey(ctx context.Context, source sync.Source, externalSKU string) (*sync.ExternalStockItem, error) {
	var item sync.ExternalStockItem
	if err := r.db.WithContext(ctx).
		Where("source = ? AND external_sku = ?", source, externalSKU).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll finds mirrors matching the filter, newest fetch first
func (r *GormExternalStockItemRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalStockItem, error) {
	var items []sync.ExternalStockItem
	query := r.db.WithContext(ctx).Model(&sync.ExternalStockItem{})

	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.StockProcessed != nil {
		query = query.Where("stock_processed = ?", *filter.StockProcessed)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("fetched_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindUnprocessed finds mirrors not yet applied to the catalog, oldest
// fetch first
func (r *GormExternalStockItemRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalStockItem, error) {
	var items []sync.ExternalStockItem
	query := r.db.WithContext(ctx).
		Where("stock_processed = ?", false).
		Order("fetched_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save persists mirror mutations
func (r *GormExternalStockItemRepository) Save(ctx context.Context, item *sync.ExternalStockItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DistinctRawItemNames lists raw item spellings seen in stock listings
func (r *GormExternalStockItemRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalStockItem{}).
		Distinct().
		Order("raw_name ASC").
		Pluck("raw_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// CountPendingStock counts mirrors awaiting processing
func (r *GormExternalStockItemRepository) CountPendingStock(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalStockItem{}).
		Where("stock_processed = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormExternalStockItemRepository implements ExternalStockItemRepository
var _ sync.ExternalStockItemRepository = (*GormExternalStockItemRepository)(nil)
