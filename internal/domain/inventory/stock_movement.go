package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	// MovementIn records stock entering inventory (purchase, ingested order)
	MovementIn MovementType = "IN"
	// MovementOut records stock leaving inventory (ingested sale)
	MovementOut MovementType = "OUT"
	// MovementAdjust records a signed correction (purchase edit, approved
	// deletion reversal, manual adjustment)
	MovementAdjust MovementType = "ADJUST"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// Reference document types for stock movements
const (
	RefTypePurchase        = "PURCHASE"
	RefTypeExternalOrder   = "EXTERNAL_ORDER"
	RefTypeExternalInvoice = "EXTERNAL_INVOICE"
	RefTypeManual          = "MANUAL"
)

// StockMovement is one immutable row of the movement ledger: the audit
// trail reconciliation falls back on. Rows are append-only; they are never
// updated or deleted, and corrections are recorded as new ADJUST rows.
type StockMovement struct {
	shared.BaseEntity
	SKU        string          `gorm:"type:varchar(64);not null;index:idx_stock_movements_sku"`
	Type       MovementType    `gorm:"type:varchar(10);not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Positive for IN/OUT; ADJUST carries its sign
	RefType    string          `gorm:"type:varchar(30);not null;index:idx_stock_movements_ref"`
	RefID      string          `gorm:"type:varchar(100);not null;index:idx_stock_movements_ref"`
	Actor      string          `gorm:"type:varchar(100);not null"`
	OccurredAt time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a new stock movement row. IN and OUT movements
// must carry positive quantities; ADJUST must be non-zero and carries its
// own sign.
func NewStockMovement(sku string, movementType MovementType, quantity decimal.Decimal, refType, refID, actor string) (*StockMovement, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	switch movementType {
	case MovementAdjust:
		if quantity.IsZero() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment quantity cannot be zero")
		}
	default:
		if !quantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
		}
	}
	if strings.TrimSpace(refType) == "" || strings.TrimSpace(refID) == "" {
		return nil, shared.NewDomainError("INVALID_REF", "Reference type and ID are required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Actor is required")
	}

	return &StockMovement{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		Type:       movementType,
		Quantity:   quantity,
		RefType:    refType,
		RefID:      refID,
		Actor:      actor,
		OccurredAt: time.Now(),
	}, nil
}

// WithOccurredAt backdates the movement to the source document's time
func (m *StockMovement) WithOccurredAt(at time.Time) *StockMovement {
	m.OccurredAt = at
	return m
}

// SignedQuantity returns the quantity with its ledger direction applied:
// positive for IN, negative for OUT, as recorded for ADJUST
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Type == MovementOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
