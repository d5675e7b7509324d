package sync

import (
	"context"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/sync"
)

// TransactionScope provides transactional access to the repositories stock
// processing touches. Folding one mirror into the ledger mutates the mirror
// row, inventory items, purchases, movements and history together; the scope
// commits or rolls them back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories stock
// processing needs, all scoped to the same database transaction.
type TransactionalRepositories interface {
	// ItemRepo returns the inventory item repository scoped to the current transaction
	ItemRepo() inventory.InventoryItemRepository
	// PurchaseRepo returns the purchase repository scoped to the current transaction
	PurchaseRepo() inventory.PurchaseRepository
	// MovementRepo returns the stock movement repository scoped to the current transaction
	MovementRepo() inventory.StockMovementRepository
	// HistoryRepo returns the stock history repository scoped to the current transaction
	HistoryRepo() inventory.StockHistoryRepository
	// OrderMirrorRepo returns the external order repository scoped to the current transaction
	OrderMirrorRepo() sync.ExternalOrderRepository
	// InvoiceMirrorRepo returns the external invoice repository scoped to the current transaction
	InvoiceMirrorRepo() sync.ExternalInvoiceRepository
	// StockItemMirrorRepo returns the external stock item repository scoped to the current transaction
	StockItemMirrorRepo() sync.ExternalStockItemRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	itemRepo      inventory.InventoryItemRepository
	purchaseRepo  inventory.PurchaseRepository
	movementRepo  inventory.StockMovementRepository
	historyRepo   inventory.StockHistoryRepository
	orderRepo     sync.ExternalOrderRepository
	invoiceRepo   sync.ExternalInvoiceRepository
	stockItemRepo sync.ExternalStockItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	itemRepo inventory.InventoryItemRepository,
	purchaseRepo inventory.PurchaseRepository,
	movementRepo inventory.StockMovementRepository,
	historyRepo inventory.StockHistoryRepository,
	orderRepo sync.ExternalOrderRepository,
	invoiceRepo sync.ExternalInvoiceRepository,
	stockItemRepo sync.ExternalStockItemRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		itemRepo:      itemRepo,
		purchaseRepo:  purchaseRepo,
		movementRepo:  movementRepo,
		historyRepo:   historyRepo,
		orderRepo:     orderRepo,
		invoiceRepo:   invoiceRepo,
		stockItemRepo: stockItemRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ItemRepo returns the inventory item repository.
func (s *NoOpTransactionScope) ItemRepo() inventory.InventoryItemRepository {
	return s.itemRepo
}

// PurchaseRepo returns the purchase repository.
func (s *NoOpTransactionScope) PurchaseRepo() inventory.PurchaseRepository {
	return s.purchaseRepo
}

// MovementRepo returns the stock movement repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.StockMovementRepository {
	return s.movementRepo
}

// HistoryRepo returns the stock history repository.
func (s *NoOpTransactionScope) HistoryRepo() inventory.StockHistoryRepository {
	return s.historyRepo
}

// OrderMirrorRepo returns the external order repository.
func (s *NoOpTransactionScope) OrderMirrorRepo() sync.ExternalOrderRepository {
	return s.orderRepo
}

// InvoiceMirrorRepo returns the external invoice repository.
func (s *NoOpTransactionScope) InvoiceMirrorRepo() sync.ExternalInvoiceRepository {
	return s.invoiceRepo
}

// StockItemMirrorRepo returns the external stock item repository.
func (s *NoOpTransactionScope) StockItemMirrorRepo() sync.ExternalStockItemRepository {
	return s.stockItemRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
