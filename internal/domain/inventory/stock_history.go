package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// StockChangeReason records why an item's quantity changed
type StockChangeReason string

const (
	// ReasonPurchaseCreated is a manually entered purchase adding stock
	ReasonPurchaseCreated StockChangeReason = "PURCHASE_CREATED"
	// ReasonPurchaseAdjusted is a quantity edit on an existing purchase
	ReasonPurchaseAdjusted StockChangeReason = "PURCHASE_ADJUSTED"
	// ReasonDeletionApproved is the reversal applied when a purchase
	// deletion request is approved
	ReasonDeletionApproved StockChangeReason = "DELETION_APPROVED"
	// ReasonPurchaseIngested is an external purchase order folded into stock
	ReasonPurchaseIngested StockChangeReason = "PURCHASE_INGESTED"
	// ReasonSaleIngested is an external sales invoice folded into stock
	ReasonSaleIngested StockChangeReason = "SALE_INGESTED"
	// ReasonManualAdjustment is an operator correction
	ReasonManualAdjustment StockChangeReason = "MANUAL_ADJUSTMENT"
)

// IsValid returns true if the reason is known
func (r StockChangeReason) IsValid() bool {
	switch r {
	case ReasonPurchaseCreated,
		ReasonPurchaseAdjusted,
		ReasonDeletionApproved,
		ReasonPurchaseIngested,
		ReasonSaleIngested,
		ReasonManualAdjustment:
		return true
	}
	return false
}

// String returns the string representation of StockChangeReason
func (r StockChangeReason) String() string {
	return string(r)
}

// StockHistoryEntry is the audit record appended every time an item's
// quantity changes. Entries are written by ApplyStockDelta only and are
// never updated afterwards; corrections are new entries.
type StockHistoryEntry struct {
	shared.BaseEntity
	InventoryItemID uuid.UUID         `gorm:"type:uuid;not null;index:idx_stock_history_item"`
	SKU             string            `gorm:"type:varchar(64);not null;index"`
	Delta           decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	QuantityBefore  decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	QuantityAfter   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Reason          StockChangeReason `gorm:"type:varchar(30);not null;index"`
	RefType         string            `gorm:"type:varchar(30)"`
	RefID           string            `gorm:"type:varchar(100)"`
	Actor           string            `gorm:"type:varchar(100);not null"`
	Note            string            `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (StockHistoryEntry) TableName() string {
	return "stock_history"
}

// NewStockHistoryEntry creates a new stock history entry
func NewStockHistoryEntry(itemID uuid.UUID, sku string, delta, before, after decimal.Decimal, reason StockChangeReason, actor string) *StockHistoryEntry {
	return &StockHistoryEntry{
		BaseEntity:      shared.NewBaseEntity(),
		InventoryItemID: itemID,
		SKU:             sku,
		Delta:           delta,
		QuantityBefore:  before,
		QuantityAfter:   after,
		Reason:          reason,
		Actor:           actor,
	}
}

// WithRef links the entry to the document that caused the change
func (e *StockHistoryEntry) WithRef(refType, refID string) *StockHistoryEntry {
	e.RefType = refType
	e.RefID = refID
	return e
}

// WithNote attaches a free-form note to the entry
func (e *StockHistoryEntry) WithNote(note string) *StockHistoryEntry {
	e.Note = note
	return e
}
