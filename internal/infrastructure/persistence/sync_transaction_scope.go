package persistence

import (
	"context"

	appsync "github.com/stocksync/backend/internal/application/sync"
	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/sync"
	"gorm.io/gorm"
)

// GormSyncTransactionScope implements the sync TransactionScope using GORM
// transactions. Stock processing folds mirror rows into the ledger, so the
// scope spans both the mirror repositories and the inventory ones.
type GormSyncTransactionScope struct {
	db *gorm.DB
}

// NewGormSyncTransactionScope creates a new GormSyncTransactionScope.
func NewGormSyncTransactionScope(db *gorm.DB) *GormSyncTransactionScope {
	return &GormSyncTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormSyncTransactionScope) Execute(ctx context.Context, fn func(repos appsync.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormSyncTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormSyncTransactionalRepositories provides access to all repositories stock
// processing touches, scoped to one transaction.
type gormSyncTransactionalRepositories struct {
	tx *gorm.DB
}

// ItemRepo returns the inventory item repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) ItemRepo() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// PurchaseRepo returns the purchase repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) PurchaseRepo() inventory.PurchaseRepository {
	return NewGormPurchaseRepository(r.tx)
}

// MovementRepo returns the stock movement repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// HistoryRepo returns the stock history repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) HistoryRepo() inventory.StockHistoryRepository {
	return NewGormStockHistoryRepository(r.tx)
}

// OrderMirrorRepo returns the external order repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) OrderMirrorRepo() sync.ExternalOrderRepository {
	return NewGormExternalOrderRepository(r.tx)
}

// InvoiceMirrorRepo returns the external invoice repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) InvoiceMirrorRepo() sync.ExternalInvoiceRepository {
	return NewGormExternalInvoiceRepository(r.tx)
}

// StockItemMirrorRepo returns the external stock item repository scoped to the current transaction.
func (r *gormSyncTransactionalRepositories) StockItemMirrorRepo() sync.ExternalStockItemRepository {
	return NewGormExternalStockItemRepository(r.tx)
}

// Ensure GormSyncTransactionScope implements TransactionScope
var _ appsync.TransactionScope = (*GormSyncTransactionScope)(nil)

// Ensure gormSyncTransactionalRepositories implements TransactionalRepositories
var _ appsync.TransactionalRepositories = (*gormSyncTransactionalRepositories)(nil)
