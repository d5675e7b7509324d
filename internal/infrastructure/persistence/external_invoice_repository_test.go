package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupExternalInvoiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&sync.ExternalInvoice{}, &sync.ExternalInvoiceLine{})
	require.NoError(t, err)

	return db
}

// identityResolve stands in for the alias resolver in tests
func identityResolve(name string) string { return name }

func mustNewInvoice(t *testing.T, number string, invoicedAt time.Time, lines ...sync.RawInvoiceLine) *sync.ExternalInvoice {
	t.Helper()
	if len(lines) == 0 {
		lines = []sync.RawInvoiceLine{{
			LineRef:   "1",
			ItemName:  "Sugar 1kg",
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(50),
		}}
	}
	inv, err := sync.NewExternalInvoice(sync.SourceRetailPortal, &sync.RawInvoice{
		InvoiceNumber: number,
		Customer:      "Walk-in",
		InvoicedAt:    invoicedAt,
		Lines:         lines,
	}, identityResolve)
	require.NoError(t, err)
	return inv
}

func TestGormExternalInvoiceRepository_Upsert(t *testing.T) {
	db := setupExternalInvoiceTestDB(t)
	repo := NewGormExternalInvoiceRepository(db)
	ctx := context.Background()

	t.Run("first upsert creates the mirror with its lines", func(t *testing.T) {
		inv := mustNewInvoice(t, "INV-100", time.Now())

		created, err := repo.UpsertByNaturalKey(ctx, inv)
		require.NoError(t, err)
		assert.True(t, created)

		found, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-100")
		require.NoError(t, err)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, "Sugar 1kg", found.Lines[0].RawItemName)
	})

	t.Run("second upsert refreshes in place", func(t *testing.T) {
		original, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-100")
		require.NoError(t, err)

		refetched := mustNewInvoice(t, "INV-100", time.Now(),
			sync.RawInvoiceLine{LineRef: "1", ItemName: "Sugar 1kg", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			sync.RawInvoiceLine{LineRef: "2", ItemName: "Salt 1kg", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(20)},
		)

		created, err := repo.UpsertByNaturalKey(ctx, refetched)
		require.NoError(t, err)
		assert.False(t, created)

		found, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-100")
		require.NoError(t, err)
		// The stored row keeps its identity; lines are replaced wholesale
		assert.Equal(t, original.ID, found.ID)
		assert.Equal(t, original.Version+1, found.Version)
		assert.Len(t, found.Lines, 2)

		var total int64
		require.NoError(t, db.Model(&sync.ExternalInvoice{}).Count(&total).Error)
		assert.Equal(t, int64(1), total)
	})

	t.Run("refresh preserves the stock-processed flag", func(t *testing.T) {
		stored, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-100")
		require.NoError(t, err)
		require.NoError(t, stored.MarkStockProcessed())
		require.NoError(t, repo.Save(ctx, stored))

		refetched := mustNewInvoice(t, "INV-100", time.Now())
		created, err := repo.UpsertByNaturalKey(ctx, refetched)
		require.NoError(t, err)
		assert.False(t, created)

		found, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-100")
		require.NoError(t, err)
		assert.True(t, found.StockProcessed)
		assert.NotNil(t, found.StockProcessedAt)
	})

	t.Run("same number under another source is a separate mirror", func(t *testing.T) {
		inv, err := sync.NewExternalInvoice(sync.SourceVendorPortal, &sync.RawInvoice{
			InvoiceNumber: "INV-100",
			InvoicedAt:    time.Now(),
			Lines: []sync.RawInvoiceLine{{
				ItemName: "Ghee 1L", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(400),
			}},
		}, identityResolve)
		require.NoError(t, err)

		created, err := repo.UpsertByNaturalKey(ctx, inv)
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestGormExternalInvoiceRepository_FindUnprocessed(t *testing.T) {
	db := setupExternalInvoiceTestDB(t)
	repo := NewGormExternalInvoiceRepository(db)
	ctx := context.Background()
	now := time.Now()

	newerDoc := mustNewInvoice(t, "INV-2", now.Add(-1*time.Hour))
	olderDoc := mustNewInvoice(t, "INV-1", now.Add(-48*time.Hour))
	processed := mustNewInvoice(t, "INV-0", now.Add(-72*time.Hour))

	for _, inv := range []*sync.ExternalInvoice{newerDoc, olderDoc, processed} {
		_, err := repo.UpsertByNaturalKey(ctx, inv)
		require.NoError(t, err)
	}

	stored, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-0")
	require.NoError(t, err)
	require.NoError(t, stored.MarkStockProcessed())
	require.NoError(t, repo.Save(ctx, stored))

	t.Run("oldest document first so the ledger fills chronologically", func(t *testing.T) {
		pending, err := repo.FindUnprocessed(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "INV-1", pending[0].InvoiceNumber)
		assert.Equal(t, "INV-2", pending[1].InvoiceNumber)
		require.Len(t, pending[0].Lines, 1)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		pending, err := repo.FindUnprocessed(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "INV-1", pending[0].InvoiceNumber)
	})

	t.Run("pending count ignores processed mirrors", func(t *testing.T) {
		count, err := repo.CountPendingStock(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormExternalInvoiceRepository_FindAll(t *testing.T) {
	db := setupExternalInvoiceTestDB(t)
	repo := NewGormExternalInvoiceRepository(db)
	ctx := context.Background()
	now := time.Now()

	for _, number := range []string{"INV-1", "INV-2", "INV-3"} {
		_, err := repo.UpsertByNaturalKey(ctx, mustNewInvoice(t, number, now))
		require.NoError(t, err)
	}

	stored, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-2")
	require.NoError(t, err)
	require.NoError(t, stored.MarkStockProcessed())
	require.NoError(t, repo.Save(ctx, stored))

	t.Run("source filter", func(t *testing.T) {
		retail := sync.SourceRetailPortal
		invoices, err := repo.FindAll(ctx, sync.MirrorFilter{Source: &retail})
		require.NoError(t, err)
		assert.Len(t, invoices, 3)

		vendor := sync.SourceVendorPortal
		invoices, err = repo.FindAll(ctx, sync.MirrorFilter{Source: &vendor})
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})

	t.Run("processed filter", func(t *testing.T) {
		processed := true
		invoices, err := repo.FindAll(ctx, sync.MirrorFilter{StockProcessed: &processed})
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, "INV-2", invoices[0].InvoiceNumber)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		invoices, err := repo.FindAll(ctx, sync.MirrorFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, invoices, 2)
	})
}

func TestGormExternalInvoiceRepository_LineQueries(t *testing.T) {
	db := setupExternalInvoiceTestDB(t)
	repo := NewGormExternalInvoiceRepository(db)
	ctx := context.Background()
	now := time.Now()

	first := mustNewInvoice(t, "INV-1", now,
		sync.RawInvoiceLine{LineRef: "1", ItemName: "sugar 1 kg", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
		sync.RawInvoiceLine{LineRef: "2", ItemName: "Ghee 1L", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(400)},
	)
	second := mustNewInvoice(t, "INV-2", now,
		sync.RawInvoiceLine{LineRef: "1", ItemName: "sugar 1 kg", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(50)},
	)
	for _, inv := range []*sync.ExternalInvoice{first, second} {
		_, err := repo.UpsertByNaturalKey(ctx, inv)
		require.NoError(t, err)
	}

	t.Run("lists every line across invoices", func(t *testing.T) {
		lines, err := repo.ListLines(ctx)
		require.NoError(t, err)
		assert.Len(t, lines, 3)
	})

	t.Run("distinct raw names dedupe repeated spellings", func(t *testing.T) {
		names, err := repo.DistinctRawItemNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ghee 1L", "sugar 1 kg"}, names)
	})
}

func TestGormExternalInvoiceRepository_NotFound(t *testing.T) {
	db := setupExternalInvoiceTestDB(t)
	repo := NewGormExternalInvoiceRepository(db)
	ctx := context.Background()

	_, err := repo.FindByNaturalKey(ctx, sync.SourceRetailPortal, "INV-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
