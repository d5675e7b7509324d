package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeInventoryItem = "InventoryItem"
	AggregateTypePurchase      = "Purchase"
)

// Event type constants
const (
	EventTypeStockDeltaApplied        = "StockDeltaApplied"
	EventTypePurchaseCreated          = "PurchaseCreated"
	EventTypePurchaseQuantityAdjusted = "PurchaseQuantityAdjusted"
	EventTypeDeletionRequested        = "PurchaseDeletionRequested"
	EventTypeDeletionApproved         = "PurchaseDeletionApproved"
	EventTypeDeletionRejected         = "PurchaseDeletionRejected"
)

// StockDeltaAppliedEvent is raised on every quantity change, carrying the
// same before/after figures as the stock history entry it mirrors
type StockDeltaAppliedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID         `json:"inventory_item_id"`
	SKU             string            `json:"sku"`
	Delta           decimal.Decimal   `json:"delta"`
	QuantityBefore  decimal.Decimal   `json:"quantity_before"`
	QuantityAfter   decimal.Decimal   `json:"quantity_after"`
	Reason          StockChangeReason `json:"reason"`
	Actor           string            `json:"actor"`
}

// NewStockDeltaAppliedEvent creates a new StockDeltaAppliedEvent
func NewStockDeltaAppliedEvent(item *InventoryItem, entry *StockHistoryEntry) *StockDeltaAppliedEvent {
	return &StockDeltaAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDeltaApplied, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		SKU:             item.SKU,
		Delta:           entry.Delta,
		QuantityBefore:  entry.QuantityBefore,
		QuantityAfter:   entry.QuantityAfter,
		Reason:          entry.Reason,
		Actor:           entry.Actor,
	}
}

// PurchaseCreatedEvent is raised when a purchase batch is recorded
type PurchaseCreatedEvent struct {
	shared.BaseDomainEvent
	PurchaseID      uuid.UUID       `json:"purchase_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
}

// NewPurchaseCreatedEvent creates a new PurchaseCreatedEvent
func NewPurchaseCreatedEvent(p *Purchase) *PurchaseCreatedEvent {
	return &PurchaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseCreated, AggregateTypePurchase, p.ID),
		PurchaseID:      p.ID,
		InventoryItemID: p.InventoryItemID,
		ItemName:        p.ItemName,
		Quantity:        p.Quantity,
		PurchasePrice:   p.PurchasePrice,
	}
}

// PurchaseQuantityAdjustedEvent is raised when the ordered quantity changes
type PurchaseQuantityAdjustedEvent struct {
	shared.BaseDomainEvent
	PurchaseID      uuid.UUID       `json:"purchase_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Delta           decimal.Decimal `json:"delta"`
	NewQuantity     decimal.Decimal `json:"new_quantity"`
}

// NewPurchaseQuantityAdjustedEvent creates a new PurchaseQuantityAdjustedEvent
func NewPurchaseQuantityAdjustedEvent(p *Purchase, delta decimal.Decimal) *PurchaseQuantityAdjustedEvent {
	return &PurchaseQuantityAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseQuantityAdjusted, AggregateTypePurchase, p.ID),
		PurchaseID:      p.ID,
		InventoryItemID: p.InventoryItemID,
		Delta:           delta,
		NewQuantity:     p.Quantity,
	}
}

// PurchaseDeletionRequestedEvent is raised when a deletion request opens
type PurchaseDeletionRequestedEvent struct {
	shared.BaseDomainEvent
	PurchaseID      uuid.UUID       `json:"purchase_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	RequestedBy     string          `json:"requested_by"`
	Reason          string          `json:"reason,omitempty"`
}

// NewPurchaseDeletionRequestedEvent creates a new PurchaseDeletionRequestedEvent
func NewPurchaseDeletionRequestedEvent(p *Purchase, actor, reason string) *PurchaseDeletionRequestedEvent {
	return &PurchaseDeletionRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeletionRequested, AggregateTypePurchase, p.ID),
		PurchaseID:      p.ID,
		InventoryItemID: p.InventoryItemID,
		Quantity:        p.Quantity,
		RequestedBy:     actor,
		Reason:          reason,
	}
}

// PurchaseDeletionApprovedEvent is raised when an admin approves a deletion
type PurchaseDeletionApprovedEvent struct {
	shared.BaseDomainEvent
	PurchaseID      uuid.UUID       `json:"purchase_id"`
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ApprovedBy      string          `json:"approved_by"`
}

// NewPurchaseDeletionApprovedEvent creates a new PurchaseDeletionApprovedEvent
func NewPurchaseDeletionApprovedEvent(p *Purchase, actor string) *PurchaseDeletionApprovedEvent {
	return &PurchaseDeletionApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeletionApproved, AggregateTypePurchase, p.ID),
		PurchaseID:      p.ID,
		InventoryItemID: p.InventoryItemID,
		Quantity:        p.Quantity,
		ApprovedBy:      actor,
	}
}

// PurchaseDeletionRejectedEvent is raised when an admin rejects a deletion
type PurchaseDeletionRejectedEvent struct {
	shared.BaseDomainEvent
	PurchaseID      uuid.UUID `json:"purchase_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	RejectedBy      string    `json:"rejected_by"`
	Reason          string    `json:"reason,omitempty"`
}

// NewPurchaseDeletionRejectedEvent creates a new PurchaseDeletionRejectedEvent
func NewPurchaseDeletionRejectedEvent(p *Purchase, actor, reason string) *PurchaseDeletionRejectedEvent {
	return &PurchaseDeletionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeletionRejected, AggregateTypePurchase, p.ID),
		PurchaseID:      p.ID,
		InventoryItemID: p.InventoryItemID,
		RejectedBy:      actor,
		Reason:          reason,
	}
}
