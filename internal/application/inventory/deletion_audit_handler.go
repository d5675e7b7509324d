package inventory

import (
	"context"
	"fmt"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DeletionAuditHandler writes an audit log line for every step of the
// purchase deletion workflow. Approval removes the purchase row itself, so
// these lines are the surviving record of who asked for and who decided a
// deletion, next to the stock history entry the reversal leaves behind.
type DeletionAuditHandler struct {
	logger *zap.Logger
}

// NewDeletionAuditHandler creates a new deletion audit handler
func NewDeletionAuditHandler(logger *zap.Logger) *DeletionAuditHandler {
	return &DeletionAuditHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *DeletionAuditHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeDeletionRequested,
		inventory.EventTypeDeletionApproved,
		inventory.EventTypeDeletionRejected,
	}
}

// Handle writes the audit line for one deletion lifecycle event
func (h *DeletionAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.PurchaseDeletionRequestedEvent:
		// Warn so pending approvals stand out in the ops log
		h.logger.Warn("purchase deletion awaits review",
			zap.String("purchase_id", e.PurchaseID.String()),
			zap.String("item_id", e.InventoryItemID.String()),
			zap.String("quantity", e.Quantity.String()),
			zap.String("requested_by", e.RequestedBy),
			zap.String("reason", e.Reason),
		)
	case *inventory.PurchaseDeletionApprovedEvent:
		h.logger.Info("purchase deletion approved",
			zap.String("purchase_id", e.PurchaseID.String()),
			zap.String("item_id", e.InventoryItemID.String()),
			zap.String("quantity", e.Quantity.String()),
			zap.String("approved_by", e.ApprovedBy),
		)
	case *inventory.PurchaseDeletionRejectedEvent:
		h.logger.Info("purchase deletion rejected",
			zap.String("purchase_id", e.PurchaseID.String()),
			zap.String("item_id", e.InventoryItemID.String()),
			zap.String("rejected_by", e.RejectedBy),
			zap.String("reason", e.Reason),
		)
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// Ensure DeletionAuditHandler implements shared.EventHandler
var _ shared.EventHandler = (*DeletionAuditHandler)(nil)
