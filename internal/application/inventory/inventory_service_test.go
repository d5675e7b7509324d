package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
)

type inventoryFixture struct {
	itemRepo     *MockInventoryItemRepository
	purchaseRepo *MockPurchaseRepository
	movementRepo *MockStockMovementRepository
	historyRepo  *MockStockHistoryRepository
	service      *InventoryService
}

func newInventoryFixture() *inventoryFixture {
	f := &inventoryFixture{
		itemRepo:     new(MockInventoryItemRepository),
		purchaseRepo: new(MockPurchaseRepository),
		movementRepo: new(MockStockMovementRepository),
		historyRepo:  new(MockStockHistoryRepository),
	}
	scope := NewNoOpTransactionScope(f.itemRepo, f.purchaseRepo, f.movementRepo, f.historyRepo)
	f.service = NewInventoryService(f.itemRepo, f.purchaseRepo, f.movementRepo, f.historyRepo, scope, DefaultInventoryConfig(), nil)
	return f
}

func TestListItems(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies paging defaults", func(t *testing.T) {
		f := newInventoryFixture()
		f.itemRepo.On("Count", ctx, mock.MatchedBy(func(filter inventory.InventoryItemFilter) bool {
			return filter.Page == 1 && filter.PageSize == 20 && filter.StaleSince == nil
		})).Return(int64(2), nil)
		f.itemRepo.On("FindAll", ctx, mock.Anything).Return([]inventory.InventoryItem{
			*testItem(t, "Wheat Flour", "50"),
			*testItem(t, "Sugar", "20"),
		}, nil)

		items, total, err := f.service.ListItems(ctx, ItemListFilter{})

		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	t.Run("Stale filter sets the cutoff at the configured age", func(t *testing.T) {
		f := newInventoryFixture()
		f.itemRepo.On("Count", ctx, mock.MatchedBy(func(filter inventory.InventoryItemFilter) bool {
			if filter.StaleSince == nil {
				return false
			}
			expected := time.Now().Add(-48 * time.Hour)
			return filter.StaleSince.Sub(expected).Abs() < time.Minute
		})).Return(int64(0), nil)
		f.itemRepo.On("FindAll", ctx, mock.Anything).Return([]inventory.InventoryItem{}, nil)

		_, _, err := f.service.ListItems(ctx, ItemListFilter{Stale: true})

		require.NoError(t, err)
		f.itemRepo.AssertExpectations(t)
	})

	t.Run("Unsynced filter passes through", func(t *testing.T) {
		f := newInventoryFixture()
		f.itemRepo.On("Count", ctx, mock.MatchedBy(func(filter inventory.InventoryItemFilter) bool {
			return filter.Unsynced
		})).Return(int64(0), nil)
		f.itemRepo.On("FindAll", ctx, mock.Anything).Return([]inventory.InventoryItem{}, nil)

		_, _, err := f.service.ListItems(ctx, ItemListFilter{Unsynced: true})

		require.NoError(t, err)
	})
}

func TestGetItemDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("Assembles the item with its audit trail", func(t *testing.T) {
		f := newInventoryFixture()
		item := testItem(t, "Wheat Flour", "50")
		purchase := testPurchase(t, item, "50")
		entry := inventory.NewStockHistoryEntry(item.ID, item.SKU, dec("50"), dec("0"), dec("50"), inventory.ReasonPurchaseCreated, "ops")
		movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementIn, dec("50"), inventory.RefTypePurchase, purchase.ID.String(), "ops")
		require.NoError(t, err)

		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.purchaseRepo.On("FindByItem", ctx, item.ID).Return([]inventory.Purchase{*purchase}, nil)
		f.historyRepo.On("FindByItem", ctx, item.ID, 50).Return([]inventory.StockHistoryEntry{*entry}, nil)
		f.movementRepo.On("FindBySKU", ctx, item.SKU, 50).Return([]inventory.StockMovement{*movement}, nil)

		detail, err := f.service.GetItemDetail(ctx, item.ID)

		require.NoError(t, err)
		assert.Equal(t, item.ID, detail.Item.ID)
		assert.Len(t, detail.Purchases, 1)
		assert.Len(t, detail.History, 1)
		assert.Len(t, detail.Movements, 1)
		assert.True(t, detail.Movements[0].SignedQuantity.Equal(dec("50")))
	})

	t.Run("Unknown item maps to not found", func(t *testing.T) {
		f := newInventoryFixture()
		missing := uuid.New()
		f.itemRepo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

		_, err := f.service.GetItemDetail(ctx, missing)

		assert.ErrorIs(t, err, shared.NewDomainError("ITEM_NOT_FOUND", ""))
	})
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies a signed correction with its audit trail", func(t *testing.T) {
		f := newInventoryFixture()
		item := testItem(t, "Wheat Flour", "10")

		var savedEntry *inventory.StockHistoryEntry
		var savedMovement *inventory.StockMovement
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockHistoryEntry")).Run(func(args mock.Arguments) {
			savedEntry = args.Get(1).(*inventory.StockHistoryEntry)
		}).Return(nil)
		f.movementRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockMovement")).Run(func(args mock.Arguments) {
			savedMovement = args.Get(1).(*inventory.StockMovement)
		}).Return(nil)

		resp, err := f.service.AdjustStock(ctx, "ops", item.ID, AdjustStockRequest{
			Delta: dec("-4"),
			Note:  "damaged bags written off",
		})

		require.NoError(t, err)
		assert.True(t, resp.CurrentQuantity.Equal(dec("6")))
		assert.True(t, item.CurrentQuantity.Equal(dec("6")))

		require.NotNil(t, savedEntry)
		assert.Equal(t, inventory.ReasonManualAdjustment, savedEntry.Reason)
		assert.Equal(t, inventory.RefTypeManual, savedEntry.RefType)
		assert.Equal(t, "damaged bags written off", savedEntry.Note)

		require.NotNil(t, savedMovement)
		assert.Equal(t, inventory.MovementAdjust, savedMovement.Type)
		assert.True(t, savedMovement.Quantity.Equal(dec("-4")))
		assert.Equal(t, inventory.RefTypeManual, savedMovement.RefType)
	})

	t.Run("Rejects a zero delta", func(t *testing.T) {
		f := newInventoryFixture()
		item := testItem(t, "Wheat Flour", "10")
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)

		_, err := f.service.AdjustStock(ctx, "ops", item.ID, AdjustStockRequest{
			Delta: dec("0"),
			Note:  "noop",
		})

		assert.Error(t, err)
		f.itemRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
