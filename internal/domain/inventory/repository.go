package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InventoryItemRepository defines the interface for inventory item persistence
type InventoryItemRepository interface {
	// FindByID finds an inventory item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindBySKU finds an inventory item by its SKU
	FindBySKU(ctx context.Context, sku string) (*InventoryItem, error)

	// FindByName finds an inventory item by exact name (case-insensitive)
	FindByName(ctx context.Context, name string) (*InventoryItem, error)

	// FindAll finds items matching the filter
	FindAll(ctx context.Context, filter InventoryItemFilter) ([]InventoryItem, error)

	// Save creates or updates an inventory item
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock saves with optimistic locking (checks version); returns
	// shared.ErrConcurrencyConflict when another writer got there first
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	// GetOrCreate finds an item by SKU or creates it with the given name,
	// tolerating concurrent creators
	GetOrCreate(ctx context.Context, sku, name string) (*InventoryItem, error)

	// Delete deletes an inventory item
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts items matching the filter; a zero filter counts everything
	Count(ctx context.Context, filter InventoryItemFilter) (int64, error)

	// CountStale counts items whose last sync is older than the cutoff
	CountStale(ctx context.Context, syncedBefore time.Time) (int64, error)

	// CountUnsynced counts items that have never been synced
	CountUnsynced(ctx context.Context) (int64, error)
}

// PurchaseRepository defines the interface for purchase ledger persistence
type PurchaseRepository interface {
	// FindByID finds a purchase by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)

	// FindAll finds purchases matching the filter
	FindAll(ctx context.Context, filter PurchaseFilter) ([]Purchase, error)

	// FindByItem finds all purchases for one inventory item, newest first
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]Purchase, error)

	// FindBySourceRef finds the purchase ingested from an external mirror
	// line, if any; used to dedupe repeated fetches
	FindBySourceRef(ctx context.Context, source, kind, naturalKey string) (*Purchase, error)

	// FindActiveBatches finds purchases with remaining quantity, the live
	// batches weighted-average pricing reads
	FindActiveBatches(ctx context.Context) ([]Purchase, error)

	// Save creates or updates a purchase
	Save(ctx context.Context, p *Purchase) error

	// Delete removes a purchase row permanently. Only the deletion-approval
	// path calls this.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts purchases matching the filter
	Count(ctx context.Context, filter PurchaseFilter) (int64, error)

	// CountPendingDeletion counts purchases awaiting an admin decision
	CountPendingDeletion(ctx context.Context) (int64, error)
}

// StockMovementRepository defines the interface for the movement ledger.
// The ledger is append-only: no update or delete operations exist.
type StockMovementRepository interface {
	// Append writes one movement row
	Append(ctx context.Context, movement *StockMovement) error

	// AppendBatch writes multiple movement rows
	AppendBatch(ctx context.Context, movements []*StockMovement) error

	// FindBySKU finds movements for one SKU, newest first
	FindBySKU(ctx context.Context, sku string, limit int) ([]StockMovement, error)

	// FindAll finds movements matching the filter, newest first
	FindAll(ctx context.Context, filter StockMovementFilter) ([]StockMovement, error)
}

// StockHistoryRepository defines the interface for per-item audit history.
// History is append-only like the movement ledger.
type StockHistoryRepository interface {
	// Append writes one history entry
	Append(ctx context.Context, entry *StockHistoryEntry) error

	// FindByItem finds history for one item, newest first
	FindByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]StockHistoryEntry, error)
}

// InventoryItemFilter defines filter criteria for inventory items
type InventoryItemFilter struct {
	// SearchKeyword searches item names and SKUs (optional)
	SearchKeyword string
	// StaleSince filters to items last synced before this time (optional)
	StaleSince *time.Time
	// Unsynced filters to items never synced
	Unsynced bool
	// OrderBy is the sort column, validated against a whitelist (optional)
	OrderBy string
	// OrderDir is ASC or DESC (optional)
	OrderDir string
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}

// PurchaseFilter defines filter criteria for purchases
type PurchaseFilter struct {
	// InventoryItemID filters to one item (optional)
	InventoryItemID *uuid.UUID
	// DeletionStatus filters by workflow state (optional)
	DeletionStatus *DeletionStatus
	// Supplier filters by supplier name (optional)
	Supplier string
	// PurchasedAfter filters to purchases at or after this time (optional)
	PurchasedAfter *time.Time
	// OrderBy is the sort column, validated against a whitelist (optional)
	OrderBy string
	// OrderDir is ASC or DESC (optional)
	OrderDir string
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}

// StockMovementFilter defines filter criteria for movement queries
type StockMovementFilter struct {
	// SKU filters to one item identity (optional)
	SKU string
	// Type filters by movement direction (optional)
	Type *MovementType
	// RefType and RefID filter by source document (optional)
	RefType string
	RefID   string
	// Since filters movements at or after this time (optional)
	Since *time.Time
	// Limit caps the number of rows returned
	Limit int
}
