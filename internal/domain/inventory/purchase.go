package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Purchase Errors
// ---------------------------------------------------------------------------

var (
	// ErrPurchasePartiallyConsumed is returned when deletion is requested
	// for a purchase whose stock has been partially consumed; consumption
	// must be fully reversed before the purchase can be deleted.
	ErrPurchasePartiallyConsumed = shared.NewDomainError("PURCHASE_PARTIALLY_CONSUMED", "Purchase is partially consumed; reverse consumption before requesting deletion")
	// ErrDeletionAlreadyPending is returned when a deletion request already
	// awaits an admin decision; duplicate requests are rejected, not stacked.
	ErrDeletionAlreadyPending = shared.NewDomainError("DELETION_ALREADY_PENDING", "A deletion request is already pending for this purchase")
	// ErrDeletionNotPending is returned when approving or rejecting a
	// purchase that has no pending deletion request.
	ErrDeletionNotPending = shared.NewDomainError("DELETION_NOT_PENDING", "Purchase has no pending deletion request")
	// ErrInsufficientRemaining is returned when consuming more quantity
	// than the purchase batch has left.
	ErrInsufficientRemaining = shared.NewDomainError("INSUFFICIENT_REMAINING", "Consumption exceeds the purchase's remaining quantity")
)

// ---------------------------------------------------------------------------
// Deletion Status
// ---------------------------------------------------------------------------

// DeletionStatus represents the deletion workflow state of a purchase.
// Deleting a purchase retroactively changes historical stock truth, so
// deletion is two-phase: an operator requests, an admin decides.
type DeletionStatus string

const (
	DeletionStatusNone     DeletionStatus = "none"
	DeletionStatusPending  DeletionStatus = "pending"
	DeletionStatusApproved DeletionStatus = "approved"
	DeletionStatusRejected DeletionStatus = "rejected"
)

// IsValid checks if the status is a valid DeletionStatus
func (s DeletionStatus) IsValid() bool {
	switch s {
	case DeletionStatusNone, DeletionStatusPending, DeletionStatusApproved, DeletionStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of DeletionStatus
func (s DeletionStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Approved is terminal (the row is removed); rejected is re-enterable.
func (s DeletionStatus) CanTransitionTo(target DeletionStatus) bool {
	switch s {
	case DeletionStatusNone:
		return target == DeletionStatusPending
	case DeletionStatusPending:
		return target == DeletionStatusApproved || target == DeletionStatusRejected
	case DeletionStatusRejected:
		return target == DeletionStatusPending
	case DeletionStatusApproved:
		return false // Terminal; the purchase row no longer exists
	}
	return false
}

// ---------------------------------------------------------------------------
// Source Reference
// ---------------------------------------------------------------------------

// SourceRefKindOrderLine marks purchases folded from an external order line
const SourceRefKindOrderLine = "order_line"

// SourceRef links an ingested purchase back to the external mirror row it
// was folded from. Its natural key dedupes repeated fetches so one external
// order line produces exactly one purchase.
type SourceRef struct {
	Source     string `gorm:"type:varchar(30)" json:"source"`
	Kind       string `gorm:"type:varchar(20)" json:"kind"`
	NaturalKey string `gorm:"type:varchar(255)" json:"natural_key"`
}

// IsZero reports whether the purchase was entered manually (no source)
func (r SourceRef) IsZero() bool {
	return r.Source == "" && r.NaturalKey == ""
}

// ---------------------------------------------------------------------------
// Purchase Aggregate
// ---------------------------------------------------------------------------

// Purchase represents one stock-increasing batch: an entry of quantity
// bought at a price. RemainingQuantity tracks how much of the batch is
// still unconsumed; weighted-average pricing reads only live batches.
type Purchase struct {
	shared.BaseAggregateRoot
	InventoryItemID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_purchases_item"`
	ItemName          string          `gorm:"type:varchar(255);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PurchasePrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SellingPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Supplier          string          `gorm:"type:varchar(255)"`
	PurchasedAt       time.Time       `gorm:"type:timestamptz;not null;index"`
	SourceRef         SourceRef       `gorm:"embedded;embeddedPrefix:source_"`

	DeletionStatus      DeletionStatus `gorm:"type:varchar(20);not null;default:'none';index"`
	DeletionRequestedBy string         `gorm:"type:varchar(100)"`
	DeletionRequestedAt *time.Time     `gorm:"type:timestamptz"`
	DeletionDecidedBy   string         `gorm:"type:varchar(100)"`
	DeletionDecidedAt   *time.Time     `gorm:"type:timestamptz"`
	DeletionReason      string         `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// NewPurchase creates a new purchase batch with its full quantity remaining
func NewPurchase(itemID uuid.UUID, itemName string, quantity, purchasePrice, sellingPrice decimal.Decimal, supplier string, purchasedAt time.Time) (*Purchase, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if strings.TrimSpace(itemName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Purchase quantity must be positive")
	}
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	if purchasedAt.IsZero() {
		purchasedAt = time.Now()
	}

	p := &Purchase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InventoryItemID:   itemID,
		ItemName:          strings.TrimSpace(itemName),
		Quantity:          quantity,
		RemainingQuantity: quantity,
		PurchasePrice:     purchasePrice,
		SellingPrice:      sellingPrice,
		Supplier:          strings.TrimSpace(supplier),
		PurchasedAt:       purchasedAt,
		DeletionStatus:    DeletionStatusNone,
	}

	p.AddDomainEvent(NewPurchaseCreatedEvent(p))

	return p, nil
}

// WithSourceRef marks the purchase as ingested from an external mirror
func (p *Purchase) WithSourceRef(source, kind, naturalKey string) *Purchase {
	p.SourceRef = SourceRef{Source: source, Kind: kind, NaturalKey: naturalKey}
	return p
}

// ConsumedQuantity returns how much of the batch has been consumed
func (p *Purchase) ConsumedQuantity() decimal.Decimal {
	return p.Quantity.Sub(p.RemainingQuantity)
}

// IsPartiallyConsumed reports whether any of the batch has been consumed
func (p *Purchase) IsPartiallyConsumed() bool {
	return p.RemainingQuantity.LessThan(p.Quantity)
}

// IsFullyConsumed reports whether the batch is exhausted
func (p *Purchase) IsFullyConsumed() bool {
	return p.RemainingQuantity.LessThanOrEqual(decimal.Zero)
}

// HasPendingDeletion reports whether a deletion request awaits a decision
func (p *Purchase) HasPendingDeletion() bool {
	return p.DeletionStatus == DeletionStatusPending
}

// AdjustOrderedQuantity changes the ordered quantity and returns the delta
// the caller must apply to inventory. The delta is new ordered minus old
// ordered, never computed against remaining, so partially-consumed batches
// adjust correctly. RemainingQuantity shifts by the same delta, clamped at
// zero.
func (p *Purchase) AdjustOrderedQuantity(newQuantity decimal.Decimal) (decimal.Decimal, error) {
	if !newQuantity.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Purchase quantity must be positive")
	}
	if p.HasPendingDeletion() {
		return decimal.Zero, shared.NewDomainError("DELETION_PENDING", "Cannot edit a purchase while its deletion is pending")
	}

	delta := newQuantity.Sub(p.Quantity)
	if delta.IsZero() {
		return decimal.Zero, nil
	}

	p.Quantity = newQuantity
	p.RemainingQuantity = p.RemainingQuantity.Add(delta)
	if p.RemainingQuantity.IsNegative() {
		p.RemainingQuantity = decimal.Zero
	}
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseQuantityAdjustedEvent(p, delta))

	return delta, nil
}

// UpdatePrices edits the batch prices; price edits never touch quantity
func (p *Purchase) UpdatePrices(purchasePrice, sellingPrice decimal.Decimal) error {
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	p.PurchasePrice = purchasePrice
	p.SellingPrice = sellingPrice
	p.Touch()
	p.IncrementVersion()
	return nil
}

// ConsumeQuantity decrements the remaining quantity, never below zero
func (p *Purchase) ConsumeQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Consumption quantity must be positive")
	}
	if qty.GreaterThan(p.RemainingQuantity) {
		return ErrInsufficientRemaining
	}
	p.RemainingQuantity = p.RemainingQuantity.Sub(qty)
	p.Touch()
	p.IncrementVersion()
	return nil
}

// RestoreQuantity reverses consumption, never above the ordered quantity
func (p *Purchase) RestoreQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Restore quantity must be positive")
	}
	restored := p.RemainingQuantity.Add(qty)
	if restored.GreaterThan(p.Quantity) {
		return shared.NewDomainError("RESTORE_EXCEEDS_ORDERED", "Restore would exceed the ordered quantity")
	}
	p.RemainingQuantity = restored
	p.Touch()
	p.IncrementVersion()
	return nil
}

// RequestDeletion opens a deletion request for admin review. The purchase
// still counts as active stock: inventory quantity is untouched until an
// admin approves. Partially-consumed purchases cannot be deleted and a
// second request while one is pending is rejected.
func (p *Purchase) RequestDeletion(actor, reason string) error {
	if strings.TrimSpace(actor) == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Requesting actor is required")
	}
	if p.HasPendingDeletion() {
		return ErrDeletionAlreadyPending
	}
	if p.IsPartiallyConsumed() {
		return ErrPurchasePartiallyConsumed
	}
	if !p.DeletionStatus.CanTransitionTo(DeletionStatusPending) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot transition from %s to pending", p.DeletionStatus))
	}

	now := time.Now()
	p.DeletionStatus = DeletionStatusPending
	p.DeletionRequestedBy = actor
	p.DeletionRequestedAt = &now
	p.DeletionDecidedBy = ""
	p.DeletionDecidedAt = nil
	p.DeletionReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseDeletionRequestedEvent(p, actor, reason))

	return nil
}

// ApproveDeletion stamps the admin decision. The caller is responsible for
// reversing the purchase's quantity on the inventory item and removing the
// row, atomically with this transition.
func (p *Purchase) ApproveDeletion(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Approving actor is required")
	}
	if !p.DeletionStatus.CanTransitionTo(DeletionStatusApproved) {
		return ErrDeletionNotPending
	}

	now := time.Now()
	p.DeletionStatus = DeletionStatusApproved
	p.DeletionDecidedBy = actor
	p.DeletionDecidedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseDeletionApprovedEvent(p, actor))

	return nil
}

// RejectDeletion declines the request; quantity is untouched and the
// purchase stays active. A rejected purchase may be re-submitted later.
func (p *Purchase) RejectDeletion(actor, reason string) error {
	if strings.TrimSpace(actor) == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Rejecting actor is required")
	}
	if !p.DeletionStatus.CanTransitionTo(DeletionStatusRejected) {
		return ErrDeletionNotPending
	}

	now := time.Now()
	p.DeletionStatus = DeletionStatusRejected
	p.DeletionDecidedBy = actor
	p.DeletionDecidedAt = &now
	p.DeletionReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseDeletionRejectedEvent(p, actor, reason))

	return nil
}
