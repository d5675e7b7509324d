package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// MockInventoryItemRepository is a mock implementation of InventoryItemRepository
type MockInventoryItemRepository struct {
	mock.Mock
}

func (m *MockInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindByName(ctx context.Context, name string) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) FindAll(ctx context.Context, filter inventory.InventoryItemFilter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) GetOrCreate(ctx context.Context, sku, name string) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, sku, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockInventoryItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInventoryItemRepository) Count(ctx context.Context, filter inventory.InventoryItemFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryItemRepository) CountStale(ctx context.Context, syncedBefore time.Time) (int64, error) {
	args := m.Called(ctx, syncedBefore)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryItemRepository) CountUnsynced(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindAll(ctx context.Context, filter inventory.PurchaseFilter) ([]inventory.Purchase, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.Purchase, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindBySourceRef(ctx context.Context, source, kind, naturalKey string) (*inventory.Purchase, error) {
	args := m.Called(ctx, source, kind, naturalKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindActiveBatches(ctx context.Context) ([]inventory.Purchase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) Save(ctx context.Context, p *inventory.Purchase) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPurchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPurchaseRepository) Count(ctx context.Context, filter inventory.PurchaseFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseRepository) CountPendingDeletion(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockStockMovementRepository is a mock implementation of StockMovementRepository
type MockStockMovementRepository struct {
	mock.Mock
}

func (m *MockStockMovementRepository) Append(ctx context.Context, movement *inventory.StockMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockStockMovementRepository) AppendBatch(ctx context.Context, movements []*inventory.StockMovement) error {
	args := m.Called(ctx, movements)
	return args.Error(0)
}

func (m *MockStockMovementRepository) FindBySKU(ctx context.Context, sku string, limit int) ([]inventory.StockMovement, error) {
	args := m.Called(ctx, sku, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockMovement), args.Error(1)
}

func (m *MockStockMovementRepository) FindAll(ctx context.Context, filter inventory.StockMovementFilter) ([]inventory.StockMovement, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockMovement), args.Error(1)
}

// MockStockHistoryRepository is a mock implementation of StockHistoryRepository
type MockStockHistoryRepository struct {
	mock.Mock
}

func (m *MockStockHistoryRepository) Append(ctx context.Context, entry *inventory.StockHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStockHistoryRepository) FindByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]inventory.StockHistoryEntry, error) {
	args := m.Called(ctx, itemID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockHistoryEntry), args.Error(1)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type purchaseFixture struct {
	itemRepo     *MockInventoryItemRepository
	purchaseRepo *MockPurchaseRepository
	movementRepo *MockStockMovementRepository
	historyRepo  *MockStockHistoryRepository
	service      *PurchaseService
}

func newPurchaseFixture() *purchaseFixture {
	f := &purchaseFixture{
		itemRepo:     new(MockInventoryItemRepository),
		purchaseRepo: new(MockPurchaseRepository),
		movementRepo: new(MockStockMovementRepository),
		historyRepo:  new(MockStockHistoryRepository),
	}
	scope := NewNoOpTransactionScope(f.itemRepo, f.purchaseRepo, f.movementRepo, f.historyRepo)
	f.service = NewPurchaseService(f.purchaseRepo, f.itemRepo, scope, nil)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testItem(t *testing.T, name, quantity string) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(inventory.SKUFromName(name), name)
	require.NoError(t, err)
	item.CurrentQuantity = dec(quantity)
	return item
}

func testPurchase(t *testing.T, item *inventory.InventoryItem, quantity string) *inventory.Purchase {
	t.Helper()
	p, err := inventory.NewPurchase(item.ID, item.Name, dec(quantity), dec("3.20"), dec("4.10"), "Golden Mills", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return p
}

// ---------------------------------------------------------------------------
// CreatePurchase
// ---------------------------------------------------------------------------

func TestCreatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates the item by name and books the quantity", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "0")

		var savedPurchase *inventory.Purchase
		var savedEntry *inventory.StockHistoryEntry
		var savedMovement *inventory.StockMovement
		f.itemRepo.On("GetOrCreate", ctx, "wheat-flour", "Wheat Flour").Return(item, nil)
		f.purchaseRepo.On("Save", ctx, mock.AnythingOfType("*inventory.Purchase")).Run(func(args mock.Arguments) {
			savedPurchase = args.Get(1).(*inventory.Purchase)
		}).Return(nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockHistoryEntry")).Run(func(args mock.Arguments) {
			savedEntry = args.Get(1).(*inventory.StockHistoryEntry)
		}).Return(nil)
		f.movementRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockMovement")).Run(func(args mock.Arguments) {
			savedMovement = args.Get(1).(*inventory.StockMovement)
		}).Return(nil)

		resp, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemName:      "Wheat Flour",
			Quantity:      dec("50"),
			PurchasePrice: dec("3.20"),
			SellingPrice:  dec("4.10"),
			Supplier:      "Golden Mills",
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "Wheat Flour", resp.ItemName)
		assert.True(t, resp.Quantity.Equal(dec("50")))
		assert.True(t, resp.RemainingQuantity.Equal(dec("50")))
		assert.Equal(t, inventory.DeletionStatusNone.String(), resp.DeletionStatus)

		require.NotNil(t, savedPurchase)
		assert.Equal(t, item.ID, savedPurchase.InventoryItemID)
		assert.True(t, item.CurrentQuantity.Equal(dec("50")))
		assert.True(t, item.LastPurchasePrice.Equal(dec("3.20")))
		assert.True(t, item.SellingPrice.Equal(dec("4.10")))

		require.NotNil(t, savedEntry)
		assert.Equal(t, inventory.ReasonPurchaseCreated, savedEntry.Reason)
		assert.Equal(t, inventory.RefTypePurchase, savedEntry.RefType)
		assert.Equal(t, savedPurchase.ID.String(), savedEntry.RefID)

		require.NotNil(t, savedMovement)
		assert.Equal(t, inventory.MovementIn, savedMovement.Type)
		assert.True(t, savedMovement.Quantity.Equal(dec("50")))
		assert.Equal(t, savedPurchase.PurchasedAt, savedMovement.OccurredAt)
	})

	t.Run("References an existing item by ID", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Sugar", "20")

		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.purchaseRepo.On("Save", ctx, mock.AnythingOfType("*inventory.Purchase")).Return(nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.movementRepo.On("Append", ctx, mock.Anything).Return(nil)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemID:        &item.ID,
			Quantity:      dec("10"),
			PurchasePrice: dec("2.00"),
		})

		require.NoError(t, err)
		assert.True(t, item.CurrentQuantity.Equal(dec("30")))
		f.itemRepo.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing item propagates not found", func(t *testing.T) {
		f := newPurchaseFixture()
		missing := uuid.New()
		f.itemRepo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemID:   &missing,
			Quantity: dec("10"),
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.purchaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Keeps the item selling price when the request omits it", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Sugar", "0")
		require.NoError(t, item.UpdatePrices(dec("2.00"), dec("4.50")))

		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.purchaseRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.movementRepo.On("Append", ctx, mock.Anything).Return(nil)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemID:        &item.ID,
			Quantity:      dec("5"),
			PurchasePrice: dec("2.10"),
		})

		require.NoError(t, err)
		assert.True(t, item.SellingPrice.Equal(dec("4.50")))
		assert.True(t, item.LastPurchasePrice.Equal(dec("2.10")))
	})

	t.Run("Rejects a non-positive quantity", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Sugar", "0")
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemID:   &item.ID,
			Quantity: decimal.Zero,
		})

		assert.Error(t, err)
		f.purchaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Requires an item reference", func(t *testing.T) {
		f := newPurchaseFixture()

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			Quantity: dec("5"),
		})

		assert.Error(t, err)
	})
}

// ---------------------------------------------------------------------------
// UpdatePurchase
// ---------------------------------------------------------------------------

func TestUpdatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Quantity edit adjusts stock by the ordered delta", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.ConsumeQuantity(dec("20")))

		var savedEntry *inventory.StockHistoryEntry
		var savedMovement *inventory.StockMovement
		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockHistoryEntry")).Run(func(args mock.Arguments) {
			savedEntry = args.Get(1).(*inventory.StockHistoryEntry)
		}).Return(nil)
		f.movementRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockMovement")).Run(func(args mock.Arguments) {
			savedMovement = args.Get(1).(*inventory.StockMovement)
		}).Return(nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		newQty := dec("60")
		resp, err := f.service.UpdatePurchase(ctx, "ops", purchase.ID, UpdatePurchaseRequest{Quantity: &newQty})

		require.NoError(t, err)
		// Delta is new ordered minus old ordered (+10), not a comparison
		// against the 30 still remaining.
		assert.True(t, item.CurrentQuantity.Equal(dec("90")))
		assert.True(t, resp.Quantity.Equal(dec("60")))
		assert.True(t, resp.RemainingQuantity.Equal(dec("40")))

		require.NotNil(t, savedEntry)
		assert.True(t, savedEntry.Delta.Equal(dec("10")))
		assert.Equal(t, inventory.ReasonPurchaseAdjusted, savedEntry.Reason)

		require.NotNil(t, savedMovement)
		assert.Equal(t, inventory.MovementAdjust, savedMovement.Type)
		assert.True(t, savedMovement.Quantity.Equal(dec("10")))
	})

	t.Run("Shrinking below consumption clamps remaining at zero", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.ConsumeQuantity(dec("40")))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.movementRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		newQty := dec("30")
		resp, err := f.service.UpdatePurchase(ctx, "ops", purchase.ID, UpdatePurchaseRequest{Quantity: &newQty})

		require.NoError(t, err)
		assert.True(t, item.CurrentQuantity.Equal(dec("60")))
		assert.True(t, resp.RemainingQuantity.IsZero())
	})

	t.Run("Price edit alone touches no quantity", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		newPrice := dec("3.45")
		resp, err := f.service.UpdatePurchase(ctx, "ops", purchase.ID, UpdatePurchaseRequest{PurchasePrice: &newPrice})

		require.NoError(t, err)
		assert.True(t, resp.PurchasePrice.Equal(dec("3.45")))
		assert.True(t, resp.SellingPrice.Equal(dec("4.10")))
		f.itemRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.movementRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("Unchanged quantity leaves stock alone", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		sameQty := dec("50")
		_, err := f.service.UpdatePurchase(ctx, "ops", purchase.ID, UpdatePurchaseRequest{Quantity: &sameQty})

		require.NoError(t, err)
		f.itemRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.historyRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("Rejects edits while deletion is pending", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.RequestDeletion("ops", "entered twice"))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)

		newQty := dec("60")
		_, err := f.service.UpdatePurchase(ctx, "ops", purchase.ID, UpdatePurchaseRequest{Quantity: &newQty})

		assert.Error(t, err)
		f.purchaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

// ---------------------------------------------------------------------------
// Deletion workflow
// ---------------------------------------------------------------------------

func TestRequestDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("Opens a pending request without touching stock", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		resp, err := f.service.RequestDeletion(ctx, "ops", purchase.ID, "entered twice")

		require.NoError(t, err)
		assert.Equal(t, inventory.DeletionStatusPending.String(), resp.DeletionStatus)
		assert.Equal(t, "ops", resp.DeletionRequestedBy)
		assert.Equal(t, "entered twice", resp.DeletionReason)
		f.itemRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.historyRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("Rejects a duplicate request", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.RequestDeletion("ops", "first"))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)

		_, err := f.service.RequestDeletion(ctx, "ops", purchase.ID, "second")

		assert.ErrorIs(t, err, inventory.ErrDeletionAlreadyPending)
		f.purchaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Rejects a partially consumed purchase", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.ConsumeQuantity(dec("5")))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)

		_, err := f.service.RequestDeletion(ctx, "ops", purchase.ID, "mistake")

		assert.ErrorIs(t, err, inventory.ErrPurchasePartiallyConsumed)
		f.purchaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Unknown purchase maps to not found", func(t *testing.T) {
		f := newPurchaseFixture()
		missing := uuid.New()
		f.purchaseRepo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

		_, err := f.service.RequestDeletion(ctx, "ops", missing, "gone")

		assert.ErrorIs(t, err, shared.NewDomainError("PURCHASE_NOT_FOUND", ""))
	})
}

func TestApproveDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("Reverses the full quantity and removes the row", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.RequestDeletion("ops", "entered twice"))

		var savedEntry *inventory.StockHistoryEntry
		var savedMovement *inventory.StockMovement
		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.itemRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockHistoryEntry")).Run(func(args mock.Arguments) {
			savedEntry = args.Get(1).(*inventory.StockHistoryEntry)
		}).Return(nil)
		f.movementRepo.On("Append", ctx, mock.AnythingOfType("*inventory.StockMovement")).Run(func(args mock.Arguments) {
			savedMovement = args.Get(1).(*inventory.StockMovement)
		}).Return(nil)
		f.purchaseRepo.On("Delete", ctx, purchase.ID).Return(nil)

		err := f.service.ApproveDeletion(ctx, "admin", purchase.ID)

		require.NoError(t, err)
		assert.True(t, item.CurrentQuantity.Equal(dec("30")))
		assert.Equal(t, inventory.DeletionStatusApproved, purchase.DeletionStatus)
		assert.Equal(t, "admin", purchase.DeletionDecidedBy)

		require.NotNil(t, savedEntry)
		assert.True(t, savedEntry.Delta.Equal(dec("-50")))
		assert.Equal(t, inventory.ReasonDeletionApproved, savedEntry.Reason)
		assert.Equal(t, "entered twice", savedEntry.Note)

		require.NotNil(t, savedMovement)
		assert.Equal(t, inventory.MovementAdjust, savedMovement.Type)
		assert.True(t, savedMovement.Quantity.Equal(dec("-50")))
		f.purchaseRepo.AssertCalled(t, "Delete", ctx, purchase.ID)
	})

	t.Run("Fails when no request is pending", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)

		err := f.service.ApproveDeletion(ctx, "admin", purchase.ID)

		assert.ErrorIs(t, err, inventory.ErrDeletionNotPending)
		f.itemRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.purchaseRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestRejectDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("Declines the request and keeps the purchase active", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.RequestDeletion("ops", "entered twice"))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		resp, err := f.service.RejectDeletion(ctx, "admin", purchase.ID, "quantity is correct")

		require.NoError(t, err)
		assert.Equal(t, inventory.DeletionStatusRejected.String(), resp.DeletionStatus)
		assert.True(t, item.CurrentQuantity.Equal(dec("80")))
		f.itemRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("Rejected purchase can be re-submitted", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		require.NoError(t, purchase.RequestDeletion("ops", "first"))

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		_, err := f.service.RejectDeletion(ctx, "admin", purchase.ID, "keep it")
		require.NoError(t, err)

		resp, err := f.service.RequestDeletion(ctx, "ops", purchase.ID, "second look")
		require.NoError(t, err)
		assert.Equal(t, inventory.DeletionStatusPending.String(), resp.DeletionStatus)
	})

	t.Run("Fails when no request is pending", func(t *testing.T) {
		f := newPurchaseFixture()
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)

		_, err := f.service.RejectDeletion(ctx, "admin", purchase.ID, "nothing pending")

		assert.ErrorIs(t, err, inventory.ErrDeletionNotPending)
	})
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func TestListPurchases(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies paging defaults", func(t *testing.T) {
		f := newPurchaseFixture()
		f.purchaseRepo.On("Count", ctx, mock.MatchedBy(func(filter inventory.PurchaseFilter) bool {
			return filter.Page == 1 && filter.PageSize == 20
		})).Return(int64(0), nil)
		f.purchaseRepo.On("FindAll", ctx, mock.Anything).Return([]inventory.Purchase{}, nil)

		_, total, err := f.service.ListPurchases(ctx, PurchaseListFilter{})

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("Filters by deletion status", func(t *testing.T) {
		f := newPurchaseFixture()
		f.purchaseRepo.On("Count", ctx, mock.MatchedBy(func(filter inventory.PurchaseFilter) bool {
			return filter.DeletionStatus != nil && *filter.DeletionStatus == inventory.DeletionStatusPending
		})).Return(int64(1), nil)
		f.purchaseRepo.On("FindAll", ctx, mock.Anything).Return([]inventory.Purchase{}, nil)

		_, total, err := f.service.ListPurchases(ctx, PurchaseListFilter{DeletionStatus: "pending"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("Rejects an unknown deletion status", func(t *testing.T) {
		f := newPurchaseFixture()

		_, _, err := f.service.ListPurchases(ctx, PurchaseListFilter{DeletionStatus: "limbo"})

		assert.Error(t, err)
		f.purchaseRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	})
}

func TestGetPurchase_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture()
	missing := uuid.New()
	f.purchaseRepo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

	_, err := f.service.GetPurchase(ctx, missing)

	assert.ErrorIs(t, err, shared.NewDomainError("PURCHASE_NOT_FOUND", ""))
}

// ---------------------------------------------------------------------------
// Event publishing
// ---------------------------------------------------------------------------

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

func TestDomainEventsPublished(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatePurchase publishes after commit", func(t *testing.T) {
		f := newPurchaseFixture()
		publisher := &capturingPublisher{}
		f.service.SetEventPublisher(publisher)
		item := testItem(t, "Wheat Flour", "0")

		f.itemRepo.On("GetOrCreate", ctx, "wheat-flour", "Wheat Flour").Return(item, nil)
		f.purchaseRepo.On("Save", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("SaveWithLock", ctx, item).Return(nil)
		f.historyRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.movementRepo.On("Append", ctx, mock.Anything).Return(nil)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemName:      "Wheat Flour",
			Quantity:      dec("50"),
			PurchasePrice: dec("3.20"),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{
			inventory.EventTypePurchaseCreated,
			inventory.EventTypeStockDeltaApplied,
		}, publisher.eventTypes())
		assert.Empty(t, item.GetDomainEvents(), "drained aggregates carry no pending events")
	})

	t.Run("RequestDeletion publishes the request event", func(t *testing.T) {
		f := newPurchaseFixture()
		publisher := &capturingPublisher{}
		f.service.SetEventPublisher(publisher)
		item := testItem(t, "Wheat Flour", "80")
		purchase := testPurchase(t, item, "50")
		purchase.ClearDomainEvents()

		f.purchaseRepo.On("FindByID", ctx, purchase.ID).Return(purchase, nil)
		f.purchaseRepo.On("Save", ctx, purchase).Return(nil)

		_, err := f.service.RequestDeletion(ctx, "ops", purchase.ID, "entered twice")

		require.NoError(t, err)
		assert.Equal(t, []string{inventory.EventTypeDeletionRequested}, publisher.eventTypes())
	})

	t.Run("Nothing is published when the transaction fails", func(t *testing.T) {
		f := newPurchaseFixture()
		publisher := &capturingPublisher{}
		f.service.SetEventPublisher(publisher)
		item := testItem(t, "Wheat Flour", "0")

		f.itemRepo.On("GetOrCreate", ctx, "wheat-flour", "Wheat Flour").Return(item, nil)
		f.purchaseRepo.On("Save", ctx, mock.Anything).Return(assert.AnError)

		_, err := f.service.CreatePurchase(ctx, "ops", CreatePurchaseRequest{
			ItemName:      "Wheat Flour",
			Quantity:      dec("50"),
			PurchasePrice: dec("3.20"),
		})

		require.Error(t, err)
		assert.Empty(t, publisher.events)
	})
}
