package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDeletionAuditHandler_Handle(t *testing.T) {
	handler := NewDeletionAuditHandler(zaptest.NewLogger(t))
	purchaseID := uuid.New()
	itemID := uuid.New()

	t.Run("handles requested event", func(t *testing.T) {
		event := &inventory.PurchaseDeletionRequestedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeDeletionRequested, inventory.AggregateTypePurchase, purchaseID),
			PurchaseID:      purchaseID,
			InventoryItemID: itemID,
			Quantity:        decimal.NewFromInt(10),
			RequestedBy:     "operator",
			Reason:          "duplicate entry",
		}

		assert.NoError(t, handler.Handle(context.Background(), event))
	})

	t.Run("handles approved event", func(t *testing.T) {
		event := &inventory.PurchaseDeletionApprovedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeDeletionApproved, inventory.AggregateTypePurchase, purchaseID),
			PurchaseID:      purchaseID,
			InventoryItemID: itemID,
			Quantity:        decimal.NewFromInt(10),
			ApprovedBy:      "admin",
		}

		assert.NoError(t, handler.Handle(context.Background(), event))
	})

	t.Run("handles rejected event", func(t *testing.T) {
		event := &inventory.PurchaseDeletionRejectedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeDeletionRejected, inventory.AggregateTypePurchase, purchaseID),
			PurchaseID:      purchaseID,
			InventoryItemID: itemID,
			RejectedBy:      "admin",
			Reason:          "batch partially consumed",
		}

		assert.NoError(t, handler.Handle(context.Background(), event))
	})

	t.Run("returns error for wrong event type", func(t *testing.T) {
		event := &inventory.PurchaseCreatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypePurchaseCreated, inventory.AggregateTypePurchase, purchaseID),
		}

		err := handler.Handle(context.Background(), event)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}

func TestDeletionAuditHandler_EventTypes(t *testing.T) {
	handler := NewDeletionAuditHandler(zaptest.NewLogger(t))

	eventTypes := handler.EventTypes()
	assert.Equal(t, []string{
		inventory.EventTypeDeletionRequested,
		inventory.EventTypeDeletionApproved,
		inventory.EventTypeDeletionRejected,
	}, eventTypes)
}
