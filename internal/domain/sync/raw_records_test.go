package sync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRawOrder_Validate(t *testing.T) {
	valid := func() *RawOrder {
		return &RawOrder{
			ExternalRef: "PO-1",
			OrderedAt:   time.Now(),
			Lines: []RawOrderLine{
				{ItemName: "wheat", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(2)},
			},
		}
	}

	t.Run("Valid order passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Missing order number", func(t *testing.T) {
		r := valid()
		r.ExternalRef = "  "
		assert.Error(t, r.Validate())
	})

	t.Run("No lines", func(t *testing.T) {
		r := valid()
		r.Lines = nil
		assert.ErrorIs(t, r.Validate(), ErrRawRecordEmpty)
	})

	t.Run("Line without item name", func(t *testing.T) {
		r := valid()
		r.Lines[0].ItemName = ""
		assert.Error(t, r.Validate())
	})

	t.Run("Zero quantity line", func(t *testing.T) {
		r := valid()
		r.Lines[0].Quantity = decimal.Zero
		assert.Error(t, r.Validate())
	})

	t.Run("Negative price line", func(t *testing.T) {
		r := valid()
		r.Lines[0].UnitPrice = decimal.NewFromInt(-1)
		assert.Error(t, r.Validate())
	})
}

func TestRawInvoice_Validate(t *testing.T) {
	valid := func() *RawInvoice {
		return &RawInvoice{
			InvoiceNumber: "INV-1",
			InvoicedAt:    time.Now(),
			Lines: []RawInvoiceLine{
				{ItemName: "wheat", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(4)},
			},
		}
	}

	t.Run("Valid invoice passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Missing invoice number", func(t *testing.T) {
		r := valid()
		r.InvoiceNumber = ""
		assert.Error(t, r.Validate())
	})

	t.Run("Empty invoice", func(t *testing.T) {
		r := valid()
		r.Lines = nil
		assert.ErrorIs(t, r.Validate(), ErrRawRecordEmpty)
	})
}

func TestRawStockItem_Validate(t *testing.T) {
	t.Run("Valid item passes", func(t *testing.T) {
		r := &RawStockItem{ExternalSKU: "WH-01", Name: "wheat", Quantity: decimal.NewFromInt(5)}
		assert.NoError(t, r.Validate())
	})

	t.Run("Name alone is enough to key", func(t *testing.T) {
		r := &RawStockItem{Name: "wheat", Quantity: decimal.Zero}
		assert.NoError(t, r.Validate())
	})

	t.Run("Neither SKU nor name", func(t *testing.T) {
		r := &RawStockItem{Quantity: decimal.NewFromInt(5)}
		assert.Error(t, r.Validate())
	})

	t.Run("Negative quantity", func(t *testing.T) {
		r := &RawStockItem{Name: "wheat", Quantity: decimal.NewFromInt(-2)}
		assert.Error(t, r.Validate())
	})
}

func TestSource(t *testing.T) {
	t.Run("Known sources are valid", func(t *testing.T) {
		for _, s := range AllSources() {
			assert.True(t, s.IsValid())
		}
	})

	t.Run("Unknown source is invalid", func(t *testing.T) {
		assert.False(t, Source("amazon").IsValid())
	})

	t.Run("Default fetch kinds", func(t *testing.T) {
		assert.Equal(t, FetchKindInvoices, SourceRetailPortal.DefaultFetchKind())
		assert.Equal(t, FetchKindOrders, SourceVendorPortal.DefaultFetchKind())
	})
}
