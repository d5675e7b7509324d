package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InventoryConfig holds tunables for inventory queries
type InventoryConfig struct {
	// StaleItemAge is how old an item's last sync may be before the item
	// counts as stale
	StaleItemAge time.Duration
	// DetailTrailLimit caps the history and movement rows on the detail view
	DetailTrailLimit int
}

// DefaultInventoryConfig returns the default inventory configuration
func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		StaleItemAge:     48 * time.Hour,
		DetailTrailLimit: 50,
	}
}

// InventoryService serves the item catalog: listings with staleness
// filters, per-item detail with the audit trail, and manual corrections
type InventoryService struct {
	itemRepo     inventory.InventoryItemRepository
	purchaseRepo inventory.PurchaseRepository
	movementRepo inventory.StockMovementRepository
	historyRepo  inventory.StockHistoryRepository
	scope        TransactionScope
	eventBus     shared.EventPublisher
	cfg          InventoryConfig
	logger       *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	itemRepo inventory.InventoryItemRepository,
	purchaseRepo inventory.PurchaseRepository,
	movementRepo inventory.StockMovementRepository,
	historyRepo inventory.StockHistoryRepository,
	scope TransactionScope,
	cfg InventoryConfig,
	logger *zap.Logger,
) *InventoryService {
	if cfg.StaleItemAge <= 0 {
		cfg.StaleItemAge = DefaultInventoryConfig().StaleItemAge
	}
	if cfg.DetailTrailLimit <= 0 {
		cfg.DetailTrailLimit = DefaultInventoryConfig().DetailTrailLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		itemRepo:     itemRepo,
		purchaseRepo: purchaseRepo,
		movementRepo: movementRepo,
		historyRepo:  historyRepo,
		scope:        scope,
		cfg:          cfg,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

// ListItems returns items matching the filter with a total count. The stale
// flag selects items whose last sync is older than the configured age;
// unsynced selects items no fetch has ever touched.
func (s *InventoryService) ListItems(ctx context.Context, filter ItemListFilter) ([]InventoryItemResponse, int64, error) {
	domainFilter := inventory.InventoryItemFilter{
		SearchKeyword: filter.Search,
		Unsynced:      filter.Unsynced,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
	}
	if filter.Stale {
		cutoff := time.Now().Add(-s.cfg.StaleItemAge)
		domainFilter.StaleSince = &cutoff
	}
	if domainFilter.Page <= 0 {
		domainFilter.Page = 1
	}
	if domainFilter.PageSize <= 0 {
		domainFilter.PageSize = 20
	}

	total, err := s.itemRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.itemRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInventoryItemResponses(items), total, nil
}

// GetItemDetail returns one item with its purchases and recent audit trail
func (s *InventoryService) GetItemDetail(ctx context.Context, id uuid.UUID) (*ItemDetailResponse, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}

	purchases, err := s.purchaseRepo.FindByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.historyRepo.FindByItem(ctx, item.ID, s.cfg.DetailTrailLimit)
	if err != nil {
		return nil, err
	}
	movements, err := s.movementRepo.FindBySKU(ctx, item.SKU, s.cfg.DetailTrailLimit)
	if err != nil {
		return nil, err
	}

	return &ItemDetailResponse{
		Item:      *ToInventoryItemResponse(item),
		Purchases: ToPurchaseResponses(purchases),
		History:   ToStockHistoryEntryResponses(history),
		Movements: ToStockMovementResponses(movements),
	}, nil
}

// AdjustStock applies a signed manual correction to an item's quantity.
// The correction, its history entry and its movement row commit together.
func (s *InventoryService) AdjustStock(ctx context.Context, actor string, id uuid.UUID, req AdjustStockRequest) (*InventoryItemResponse, error) {
	var resp *InventoryItemResponse
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		entry, err := item.ApplyStockDelta(req.Delta, inventory.ReasonManualAdjustment, actor)
		if err != nil {
			return err
		}
		entry.WithRef(inventory.RefTypeManual, entry.ID.String()).WithNote(req.Note)

		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}

		movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementAdjust, req.Delta, inventory.RefTypeManual, entry.ID.String(), actor)
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return err
		}

		resp = ToInventoryItemResponse(item)
		events = drainEvents(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.eventBus != nil && len(events) > 0 {
		_ = s.eventBus.Publish(ctx, events...)
	}

	s.logger.Info("Stock adjusted manually",
		zap.String("item_id", id.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("actor", actor),
		zap.String("note", req.Note))
	return resp, nil
}

// GetItemBySKU returns one item by its SKU
func (s *InventoryService) GetItemBySKU(ctx context.Context, sku string) (*InventoryItemResponse, error) {
	item, err := s.itemRepo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Inventory item not found")
		}
		return nil, err
	}
	return ToInventoryItemResponse(item), nil
}

func (s *InventoryService) findItem(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Inventory item not found")
		}
		return nil, err
	}
	return item, nil
}
