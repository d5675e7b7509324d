package inventory

import (
	"context"

	"github.com/stocksync/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations will be part of the same database transaction and will be
// committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the inventory repositories
// within a transaction. Every ledger write goes through here: a purchase
// mutation, its item quantity change, its history entry and its movement
// row must commit together or not at all.
type TransactionalRepositories interface {
	// ItemRepo returns the inventory item repository scoped to the current transaction
	ItemRepo() inventory.InventoryItemRepository
	// PurchaseRepo returns the purchase repository scoped to the current transaction
	PurchaseRepo() inventory.PurchaseRepository
	// MovementRepo returns the stock movement repository scoped to the current transaction
	MovementRepo() inventory.StockMovementRepository
	// HistoryRepo returns the stock history repository scoped to the current transaction
	HistoryRepo() inventory.StockHistoryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	itemRepo     inventory.InventoryItemRepository
	purchaseRepo inventory.PurchaseRepository
	movementRepo inventory.StockMovementRepository
	historyRepo  inventory.StockHistoryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	itemRepo inventory.InventoryItemRepository,
	purchaseRepo inventory.PurchaseRepository,
	movementRepo inventory.StockMovementRepository,
	historyRepo inventory.StockHistoryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		itemRepo:     itemRepo,
		purchaseRepo: purchaseRepo,
		movementRepo: movementRepo,
		historyRepo:  historyRepo,
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

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
