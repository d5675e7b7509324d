package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByID finds a purchase by its ID
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Purchase, error) {
	var p inventory.Purchase
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll finds purchases matching the filter, newest first. A zero filter
// returns the whole ledger; reconciliation depends on that.
func (r *GormPurchaseRepository) FindAll(ctx context.Context, filter inventory.PurchaseFilter) ([]inventory.Purchase, error) {
	var purchases []inventory.Purchase
	query := r.applyFilter(r.db.WithContext(ctx).Model(&inventory.Purchase{}), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	order := "purchased_at DESC, created_at DESC"
	if filter.OrderBy != "" {
		// Whitelist validation prevents SQL injection through sort params
		if sortField := ValidateSortField(filter.OrderBy, PurchaseSortFields, ""); sortField != "" {
			order = sortField + " " + ValidateSortOrder(filter.OrderDir)
		}
	}

	if err := query.Order(order).Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// FindByItem finds all purchases for one inventory item, newest first
func (r *GormPurchaseRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.Purchase, error) {
	var purchases []inventory.Purchase
	if err := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("purchased_at DESC, created_at DESC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// FindBySourceRef finds the purchase ingested from an external mirror line
func (r *GormPurchaseRepository) FindBySourceRef(ctx context.Context, source, kind, naturalKey string) (*inventory.Purchase, error) {
	var p inventory.Purchase
	if err := r.db.WithContext(ctx).
		Where("source_source = ? AND source_kind = ? AND source_natural_key = ?", source, kind, naturalKey).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindActiveBatches finds purchases with remaining quantity, oldest first
func (r *GormPurchaseRepository) FindActiveBatches(ctx context.Context) ([]inventory.Purchase, error) {
	var purchases []inventory.Purchase
	if err := r.db.WithContext(ctx).
		Where("remaining_quantity > 0").
		Order("purchased_at ASC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// Save creates or updates a purchase
func (r *GormPurchaseRepository) Save(ctx context.Context, p *inventory.Purchase) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete removes a purchase row permanently
func (r *GormPurchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.Purchase{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts purchases matching the filter
func (r *GormPurchaseRepository) Count(ctx context.Context, filter inventory.PurchaseFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&inventory.Purchase{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountPendingDeletion counts purchases awaiting an admin decision
func (r *GormPurchaseRepository) CountPendingDeletion(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Purchase{}).
		Where("deletion_status = ?", inventory.DeletionStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter criteria without pagination
func (r *GormPurchaseRepository) applyFilter(query *gorm.DB, filter inventory.PurchaseFilter) *gorm.DB {
	if filter.InventoryItemID != nil {
		query = query.Where("inventory_item_id = ?", *filter.InventoryItemID)
	}
	if filter.DeletionStatus != nil {
		query = query.Where("deletion_status = ?", *filter.DeletionStatus)
	}
	if supplier := strings.TrimSpace(filter.Supplier); supplier != "" {
		query = query.Where("LOWER(supplier) LIKE ?", "%"+strings.ToLower(supplier)+"%")
	}
	if filter.PurchasedAfter != nil {
		query = query.Where("purchased_at >= ?", *filter.PurchasedAfter)
	}
	return query
}

// Ensure GormPurchaseRepository implements PurchaseRepository
var _ inventory.PurchaseRepository = (*GormPurchaseRepository)(nil)
