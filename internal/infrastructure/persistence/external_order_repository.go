package persistence

import (
	"context"
	"errors"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExternalOrderRepository implements ExternalOrderRepository using GORM
type GormExternalOrderRepository struct {
	db *gorm.DB
}

// NewGormExternalOrderRepository creates a new GormExternalOrderRepository
func NewGormExternalOrderRepository(db *gorm.DB) *GormExternalOrderRepository {
	return &GormExternalOrderRepository{db: db}
}

// UpsertByNaturalKey creates the mirror or refreshes the row with the same
// (source, order number), preserving identity and processing state
func (r *GormExternalOrderRepository) UpsertByNaturalKey(ctx context.Context, order *sync.ExternalOrder) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sync.ExternalOrder
		err := tx.Where("source = ? AND order_number = ?", order.Source, order.OrderNumber).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
				return err
			}
			return createOrderLines(tx, order)
		}
		if err != nil {
			return err
		}

		order.ID = existing.ID
		order.CreatedAt = existing.CreatedAt
		order.Version = existing.Version + 1
		order.StockProcessed = existing.StockProcessed
		order.StockProcessedAt = existing.StockProcessedAt
		for i := range order.Lines {
			order.Lines[i].OrderID = existing.ID
		}
		if err := tx.Where("order_id = ?", existing.ID).Delete(&sync.ExternalOrderLine{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return err
		}
		return createOrderLines(tx, order)
	})
	return created, err
}

func createOrderLines(tx *gorm.DB, order *sync.ExternalOrder) error {
	if len(order.Lines) == 0 {
		return nil
	}
	return tx.Create(&order.Lines).Error
}

// FindByNaturalKey finds a mirror by its business key, lines loaded
func (r *GormExternalOrderRepository) FindByNaturalKey(ctx context.Context, source sync.Source, orderNumber string) (*sync.ExternalOrder, error) {
	var order sync.ExternalOrder
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("source = ? AND order_number = ?", source, orderNumber).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindAll finds mirrors matching the filter, newest fetch first, lines loaded
func (r *GormExternalOrderRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalOrder, error) {
	var orders []sync.ExternalOrder
	query := r.db.WithContext(ctx).Model(&sync.ExternalOrder{}).Preload("Lines")

	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.StockProcessed != nil {
		query = query.Where("stock_processed = ?", *filter.StockProcessed)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("fetched_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindUnprocessed finds mirrors not yet folded into the ledger, oldest
// document first
func (r *GormExternalOrderRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalOrder, error) {
	var orders []sync.ExternalOrder
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("stock_processed = ?", false).
		Order("ordered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists mirror mutations, leaving the lines untouched
func (r *GormExternalOrderRepository) Save(ctx context.Context, order *sync.ExternalOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// DistinctRawItemNames lists raw item spellings seen on order lines
func (r *GormExternalOrderRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalOrderLine{}).
		Distinct().
		Order("raw_item_name ASC").
		Pluck("raw_item_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// CountPendingStock counts mirrors awaiting stock processing
func (r *GormExternalOrderRepository) CountPendingStock(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalOrder{}).
		Where("stock_processed = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormExternalOrderRepository implements ExternalOrderRepository
var _ sync.ExternalOrderRepository = (*GormExternalOrderRepository)(nil)
