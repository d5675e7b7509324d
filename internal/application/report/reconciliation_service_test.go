package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/report"
	"github.com/stocksync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

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

// MockExternalInvoiceRepository is a mock implementation of ExternalInvoiceRepository
type MockExternalInvoiceRepository struct {
	mock.Mock
}

func (m *MockExternalInvoiceRepository) UpsertByNaturalKey(ctx context.Context, invoice *sync.ExternalInvoice) (bool, error) {
	args := m.Called(ctx, invoice)
	return args.Bool(0), args.Error(1)
}

func (m *MockExternalInvoiceRepository) FindByNaturalKey(ctx context.Context, source sync.Source, invoiceNumber string) (*sync.ExternalInvoice, error) {
	args := m.Called(ctx, source, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ExternalInvoice), args.Error(1)
}

func (m *MockExternalInvoiceRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalInvoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalInvoice), args.Error(1)
}

func (m *MockExternalInvoiceRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalInvoice, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalInvoice), args.Error(1)
}

func (m *MockExternalInvoiceRepository) Save(ctx context.Context, invoice *sync.ExternalInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockExternalInvoiceRepository) ListLines(ctx context.Context) ([]sync.ExternalInvoiceLine, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ExternalInvoiceLine), args.Error(1)
}

func (m *MockExternalInvoiceRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockExternalInvoiceRepository) CountPendingStock(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockResolver is a mock implementation of mapping.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockResolver) Lookup(ctx context.Context) (mapping.LookupTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(mapping.LookupTable), args.Error(1)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func batch(t *testing.T, itemName, quantity, remaining, price string) inventory.Purchase {
	t.Helper()
	p, err := inventory.NewPurchase(uuid.New(), itemName, dec(quantity), dec(price), decimal.Zero, "Golden Mills", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	consumed := dec(quantity).Sub(dec(remaining))
	if consumed.IsPositive() {
		require.NoError(t, p.ConsumeQuantity(consumed))
	}
	return *p
}

func saleLine(rawName, quantity, price string) sync.ExternalInvoiceLine {
	return sync.ExternalInvoiceLine{
		RawItemName:       rawName,
		CanonicalItemName: rawName,
		Quantity:          dec(quantity),
		UnitPrice:         dec(price),
	}
}

func rowByName(t *testing.T, rep *report.ReconciliationReport, name string) report.ReconciliationRow {
	t.Helper()
	for _, row := range rep.Rows {
		if row.ItemName == name {
			return row
		}
	}
	t.Fatalf("no row for %q in %+v", name, rep.Rows)
	return report.ReconciliationRow{}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBuildReport(t *testing.T) {
	ctx := context.Background()

	t.Run("Regroups sale lines by their raw names at read time", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return([]inventory.Purchase{
			batch(t, "Wheat Flour", "50", "50", "3.00"),
		}, nil)
		// The invoice was ingested before the "flour" alias existed; its
		// stored canonical name still says "flour". Read-time resolution
		// folds it into Wheat Flour anyway.
		invoiceRepo.On("ListLines", ctx).Return([]sync.ExternalInvoiceLine{
			saleLine("flour", "20", "4.50"),
		}, nil)
		resolver.On("Lookup", ctx).Return(mapping.LookupTable{
			"flour":       "Wheat Flour",
			"wheat flour": "Wheat Flour",
		}, nil)

		rep, err := svc.BuildReport(ctx)

		require.NoError(t, err)
		require.Len(t, rep.Rows, 1)
		row := rep.Rows[0]
		assert.Equal(t, "Wheat Flour", row.ItemName)
		assert.True(t, row.TotalPurchased.Equal(dec("50")))
		assert.True(t, row.TotalSold.Equal(dec("20")))
		assert.True(t, row.CurrentStock.Equal(dec("30")))
		assert.Equal(t, report.ClassInStock, row.Classification)
	})

	t.Run("Computes weighted cost over live batches only", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return([]inventory.Purchase{
			batch(t, "Sugar", "100", "0", "1.00"),
			batch(t, "Sugar", "50", "50", "2.00"),
			batch(t, "Sugar", "30", "10", "3.00"),
		}, nil)
		invoiceRepo.On("ListLines", ctx).Return([]sync.ExternalInvoiceLine{}, nil)
		resolver.On("Lookup", ctx).Return(mapping.LookupTable{}, nil)

		rep, err := svc.BuildReport(ctx)

		require.NoError(t, err)
		row := rowByName(t, rep, "Sugar")
		// (50*2 + 30*3) / 80; the consumed batch at 1.00 is out of the mean
		// but still counts toward the purchased total.
		assert.True(t, row.WeightedAvgCost.Equal(dec("2.375")), "got %s", row.WeightedAvgCost)
		assert.True(t, row.TotalPurchased.Equal(dec("180")))
		assert.Equal(t, 3, row.BatchCount)
	})

	t.Run("Flags identities sold without any purchase", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return([]inventory.Purchase{}, nil)
		invoiceRepo.On("ListLines", ctx).Return([]sync.ExternalInvoiceLine{
			saleLine("Mystery Syrup", "5", "9.00"),
		}, nil)
		resolver.On("Lookup", ctx).Return(mapping.LookupTable{}, nil)

		rep, err := svc.BuildReport(ctx)

		require.NoError(t, err)
		row := rowByName(t, rep, "Mystery Syrup")
		assert.Equal(t, report.ClassUnmatchedSale, row.Classification)
		assert.Equal(t, 1, rep.Summary.UnmatchedSaleCount)
	})

	t.Run("Lookup failure degrades to raw-name identities", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return([]inventory.Purchase{
			batch(t, "Wheat Flour", "50", "50", "3.00"),
		}, nil)
		invoiceRepo.On("ListLines", ctx).Return([]sync.ExternalInvoiceLine{
			saleLine("flour", "20", "4.50"),
		}, nil)
		resolver.On("Lookup", ctx).Return(nil, errors.New("redis gone"))

		rep, err := svc.BuildReport(ctx)

		require.NoError(t, err)
		// Without the alias table the two spellings stay separate identities.
		assert.Len(t, rep.Rows, 2)
		assert.Equal(t, report.ClassUnmatchedSale, rowByName(t, rep, "flour").Classification)
	})

	t.Run("Empty ledger produces an empty report", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return([]inventory.Purchase{}, nil)
		invoiceRepo.On("ListLines", ctx).Return([]sync.ExternalInvoiceLine{}, nil)
		resolver.On("Lookup", ctx).Return(mapping.LookupTable{}, nil)

		rep, err := svc.BuildReport(ctx)

		require.NoError(t, err)
		assert.Empty(t, rep.Rows)
		assert.Equal(t, 0, rep.Summary.TotalItems)
		assert.True(t, rep.Summary.TotalStockValue.IsZero())
	})

	t.Run("Ledger read failure surfaces", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		invoiceRepo := new(MockExternalInvoiceRepository)
		resolver := new(MockResolver)
		svc := NewReconciliationService(purchaseRepo, invoiceRepo, resolver, nil)

		purchaseRepo.On("FindAll", ctx, inventory.PurchaseFilter{}).Return(nil, errors.New("connection refused"))

		_, err := svc.BuildReport(ctx)

		assert.Error(t, err)
	})
}
