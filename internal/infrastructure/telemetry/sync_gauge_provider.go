// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormSyncGaugeProvider implements SyncGaugeProvider using GORM.
// It queries the mirror and inventory tables directly for aggregate counts.
type GormSyncGaugeProvider struct {
	db *gorm.DB
}

// NewGormSyncGaugeProvider creates a new GormSyncGaugeProvider.
func NewGormSyncGaugeProvider(db *gorm.DB) *GormSyncGaugeProvider {
	return &GormSyncGaugeProvider{db: db}
}

// PendingStockBacklog returns the count of mirrored records not yet folded
// into the stock ledger, across all three mirror tables.
func (p *GormSyncGaugeProvider) PendingStockBacklog(ctx context.Context) (int64, error) {
	var total int64
	for _, table := range []string{"external_invoices", "external_orders", "external_stock_items"} {
		var count int64
		err := p.db.WithContext(ctx).
			Table(table).
			Where("stock_processed = ?", false).
			Count(&count).Error
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// StaleItemCount returns the count of items whose last portal sync is older
// than the threshold. Items never touched by a fetch do not count as stale.
func (p *GormSyncGaugeProvider) StaleItemCount(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().Add(-threshold)

	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_items").
		Where("last_synced_at IS NOT NULL AND last_synced_at < ?", cutoff).
		Count(&count).Error

	return count, err
}

// Ensure GormSyncGaugeProvider implements SyncGaugeProvider
var _ SyncGaugeProvider = (*GormSyncGaugeProvider)(nil)
