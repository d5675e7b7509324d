package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	reportapp "github.com/stocksync/backend/internal/application/report"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockExternalOrderRepository implements sync.ExternalOrderRepository for testing
type MockExternalOrderRepository struct {
	mock.Mock
}

func (m *MockExternalOrderRepository) UpsertByNaturalKey(ctx context.Context, order *sync.ExternalOrder) (bool, error) {
	args := m.Called(ctx, order)
	return args.Bool(0), args.Error(1)
}

func (m *MockExternalOrderRepository) FindByNaturalKey(ctx context.Context, source sync.Source, orderNumber string) (*sync.ExternalOrder, error) {
	args := m.Called(ctx, source, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ExternalOrder), args.Error(1)
}

func (m *MockExternalOrderRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalOrder, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalOrder), args.Error(1)
}

func (m *MockExternalOrderRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalOrder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalOrder), args.Error(1)
}

func (m *MockExternalOrderRepository) Save(ctx context.Context, order *sync.ExternalOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockExternalOrderRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockExternalOrderRepository) CountPendingStock(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockExternalStockItemRepository implements sync.ExternalStockItemRepository for testing
type MockExternalStockItemRepository struct {
	mock.Mock
}

func (m *MockExternalStockItemRepository) UpsertByNaturalKey(ctx context.Context, item *sync.ExternalStockItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *MockExternalStockItemRepository) FindByNaturalKey(ctx context.Context, source sync.Source, externalSKU string) (*sync.ExternalStockItem, error) {
	args := m.Called(ctx, source, externalSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ExternalStockItem), args.Error(1)
}

func (m *MockExternalStockItemRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalStockItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalStockItem), args.Error(1)
}

func (m *MockExternalStockItemRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalStockItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalStockItem), args.Error(1)
}

func (m *MockExternalStockItemRepository) Save(ctx context.Context, item *sync.ExternalStockItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockExternalStockItemRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockExternalStockItemRepository) CountPendingStock(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ensure mocks implement the interfaces
var _ sync.ExternalOrderRepository = (*MockExternalOrderRepository)(nil)
var _ sync.ExternalStockItemRepository = (*MockExternalStockItemRepository)(nil)

// Test helpers

type healthMocks struct {
	records       *MockFetchRecordRepository
	orderRepo     *MockExternalOrderRepository
	invoiceRepo   *MockExternalInvoiceRepository
	stockItemRepo *MockExternalStockItemRepository
	itemRepo      *MockInventoryItemRepository
}

func setupHealthTestRouter() (*gin.Engine, *healthMocks, *HealthHandler) {
	gin.SetMode(gin.TestMode)

	mocks := &healthMocks{
		records:       new(MockFetchRecordRepository),
		orderRepo:     new(MockExternalOrderRepository),
		invoiceRepo:   new(MockExternalInvoiceRepository),
		stockItemRepo: new(MockExternalStockItemRepository),
		itemRepo:      new(MockInventoryItemRepository),
	}
	service := reportapp.NewSyncHealthService(mocks.records, mocks.orderRepo, mocks.invoiceRepo, mocks.stockItemRepo, mocks.itemRepo, nil)
	handler := NewHealthHandler(service)

	router := gin.New()

	return router, mocks, handler
}

// Tests

func TestHealthHandler_GetSyncHealth(t *testing.T) {
	t.Run("should report excellent health for a fresh pipeline", func(t *testing.T) {
		router, mocks, handler := setupHealthTestRouter()

		completed := createTestFetchRecord(sync.SourceVendorPortal, sync.FetchKindOrders, sync.FetchStatusCompleted)

		router.GET("/sync/health", handler.GetSyncHealth)

		mocks.records.On("FindAll", mock.Anything, mock.AnythingOfType("sync.FetchRecordFilter")).
			Return([]sync.FetchRecord{*completed}, nil)
		mocks.records.On("CountByStatusSince", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(map[sync.FetchStatus]int64{sync.FetchStatusCompleted: 10}, nil)
		mocks.orderRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.invoiceRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.stockItemRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.itemRepo.On("CountStale", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil)
		mocks.itemRepo.On("CountUnsynced", mock.Anything).Return(int64(0), nil)
		mocks.itemRepo.On("Count", mock.Anything, mock.AnythingOfType("inventory.InventoryItemFilter")).
			Return(int64(20), nil)
		mocks.records.On("FindLatestBySource", mock.Anything).
			Return(map[sync.Source]sync.FetchRecord{sync.SourceVendorPortal: *completed}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/sync/health", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.True(t, response["success"].(bool))

		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(100), data["score"])
		assert.Equal(t, "excellent", data["status"])
		assert.Empty(t, data["warnings"])

		// both known sources are always listed
		sources := data["sources"].([]interface{})
		assert.Len(t, sources, 2)

		vendor := sources[0].(map[string]interface{})
		assert.Equal(t, "vendor_portal", vendor["source"])
		assert.Equal(t, "completed", vendor["last_status"])

		retail := sources[1].(map[string]interface{})
		assert.Equal(t, "retail_portal", retail["source"])
		_, fetched := retail["last_status"]
		assert.False(t, fetched)

		mocks.records.AssertExpectations(t)
		mocks.itemRepo.AssertExpectations(t)
	})

	t.Run("should accumulate penalties for a broken pipeline", func(t *testing.T) {
		router, mocks, handler := setupHealthTestRouter()

		router.GET("/sync/health", handler.GetSyncHealth)

		// no fetch ever completed, most attempts failing, big backlog
		mocks.records.On("FindAll", mock.Anything, mock.AnythingOfType("sync.FetchRecordFilter")).
			Return([]sync.FetchRecord{}, nil)
		mocks.records.On("CountByStatusSince", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(map[sync.FetchStatus]int64{
				sync.FetchStatusCompleted: 2,
				sync.FetchStatusFailed:    8,
			}, nil)
		mocks.orderRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.invoiceRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.stockItemRepo.On("CountPendingStock", mock.Anything).Return(int64(120), nil)
		mocks.itemRepo.On("CountStale", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil)
		mocks.itemRepo.On("CountUnsynced", mock.Anything).Return(int64(0), nil)
		mocks.itemRepo.On("Count", mock.Anything, mock.AnythingOfType("inventory.InventoryItemFilter")).
			Return(int64(20), nil)
		mocks.records.On("FindLatestBySource", mock.Anything).
			Return(map[sync.Source]sync.FetchRecord{}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/sync/health", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)

		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(20), data["score"])
		assert.Equal(t, "critical", data["status"])

		warnings := data["warnings"].([]interface{})
		assert.Len(t, warnings, 4)
		recommendations := data["recommendations"].([]interface{})
		assert.Len(t, recommendations, 4)
	})

	t.Run("should score an empty system without error", func(t *testing.T) {
		router, mocks, handler := setupHealthTestRouter()

		router.GET("/sync/health", handler.GetSyncHealth)

		mocks.records.On("FindAll", mock.Anything, mock.AnythingOfType("sync.FetchRecordFilter")).
			Return([]sync.FetchRecord{}, nil)
		mocks.records.On("CountByStatusSince", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(map[sync.FetchStatus]int64{}, nil)
		mocks.orderRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.invoiceRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.stockItemRepo.On("CountPendingStock", mock.Anything).Return(int64(0), nil)
		mocks.itemRepo.On("CountStale", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil)
		mocks.itemRepo.On("CountUnsynced", mock.Anything).Return(int64(0), nil)
		mocks.itemRepo.On("Count", mock.Anything, mock.AnythingOfType("inventory.InventoryItemFilter")).
			Return(int64(0), nil)
		mocks.records.On("FindLatestBySource", mock.Anything).
			Return(map[sync.Source]sync.FetchRecord{}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/sync/health", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)

		// only the no-fetch penalty applies; rates over zero
		// attempts do not fire
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(70), data["score"])
		assert.Equal(t, "fair", data["status"])
	})
}
