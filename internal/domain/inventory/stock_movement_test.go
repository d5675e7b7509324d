package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovement(t *testing.T) {
	t.Run("Valid IN movement", func(t *testing.T) {
		m, err := NewStockMovement("wheat", MovementIn, decimal.NewFromInt(100), RefTypePurchase, "po-1", "operator")
		require.NoError(t, err)
		assert.Equal(t, MovementIn, m.Type)
		assert.True(t, m.SignedQuantity().Equal(decimal.NewFromInt(100)))
	})

	t.Run("OUT movements sign negatively", func(t *testing.T) {
		m, err := NewStockMovement("wheat", MovementOut, decimal.NewFromInt(40), RefTypeExternalInvoice, "inv-9", "sync")
		require.NoError(t, err)
		assert.True(t, m.SignedQuantity().Equal(decimal.NewFromInt(-40)))
	})

	t.Run("ADJUST keeps its own sign", func(t *testing.T) {
		m, err := NewStockMovement("wheat", MovementAdjust, decimal.NewFromInt(-15), RefTypePurchase, "po-2", "admin")
		require.NoError(t, err)
		assert.True(t, m.SignedQuantity().Equal(decimal.NewFromInt(-15)))
	})

	t.Run("IN with non-positive quantity rejected", func(t *testing.T) {
		_, err := NewStockMovement("wheat", MovementIn, decimal.Zero, RefTypePurchase, "po-1", "operator")
		assert.Error(t, err)

		_, err = NewStockMovement("wheat", MovementIn, decimal.NewFromInt(-5), RefTypePurchase, "po-1", "operator")
		assert.Error(t, err)
	})

	t.Run("Zero ADJUST rejected", func(t *testing.T) {
		_, err := NewStockMovement("wheat", MovementAdjust, decimal.Zero, RefTypeManual, "fix", "admin")
		assert.Error(t, err)
	})

	t.Run("Missing reference rejected", func(t *testing.T) {
		_, err := NewStockMovement("wheat", MovementIn, decimal.NewFromInt(1), "", "", "operator")
		assert.Error(t, err)
	})

	t.Run("Missing actor rejected", func(t *testing.T) {
		_, err := NewStockMovement("wheat", MovementIn, decimal.NewFromInt(1), RefTypePurchase, "po-1", "")
		assert.Error(t, err)
	})

	t.Run("Unknown type rejected", func(t *testing.T) {
		_, err := NewStockMovement("wheat", MovementType("SIDEWAYS"), decimal.NewFromInt(1), RefTypePurchase, "po-1", "operator")
		assert.Error(t, err)
	})
}
