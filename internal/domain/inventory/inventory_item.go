package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// InventoryItem represents one item identity tracked by the ledger. Items
// are keyed by SKU; ingested items derive their SKU from the canonical name.
// It is the aggregate root for stock quantity operations.
type InventoryItem struct {
	shared.BaseAggregateRoot
	SKU               string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name              string          `gorm:"type:varchar(255);not null;index"`
	CurrentQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastPurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Display only; pricing math uses weighted averages
	SellingPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSyncedAt      *time.Time      `gorm:"type:timestamptz;index"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item with zero stock
func NewInventoryItem(sku, name string) (*InventoryItem, error) {
	sku = strings.TrimSpace(sku)
	name = strings.TrimSpace(name)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}

	item := &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		CurrentQuantity:   decimal.Zero,
		LastPurchasePrice: decimal.Zero,
		SellingPrice:      decimal.Zero,
	}

	return item, nil
}

// ApplyStockDelta is the only authorized mutation path for CurrentQuantity.
// Every writer (purchase entry, purchase edit, deletion approval, sale
// processing) routes through it so each quantity change leaves exactly one
// history entry recording the delta, the balance before and after, the
// reason, and the actor. Zero deltas are rejected rather than recorded.
func (i *InventoryItem) ApplyStockDelta(delta decimal.Decimal, reason StockChangeReason, actor string) (*StockHistoryEntry, error) {
	if delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_DELTA", "Stock delta cannot be zero")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Unknown stock change reason")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Actor is required for stock changes")
	}

	before := i.CurrentQuantity
	i.CurrentQuantity = i.CurrentQuantity.Add(delta)
	i.Touch()
	i.IncrementVersion()

	entry := NewStockHistoryEntry(i.ID, i.SKU, delta, before, i.CurrentQuantity, reason, actor)
	i.AddDomainEvent(NewStockDeltaAppliedEvent(i, entry))

	return entry, nil
}

// MarkSynced stamps the item as refreshed by a portal fetch
func (i *InventoryItem) MarkSynced(at time.Time) {
	i.LastSyncedAt = &at
	i.Touch()
}

// UpdatePrices refreshes the display prices. Negative prices are rejected.
func (i *InventoryItem) UpdatePrices(purchasePrice, sellingPrice decimal.Decimal) error {
	if purchasePrice.IsNegative() || sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	i.LastPurchasePrice = purchasePrice
	i.SellingPrice = sellingPrice
	i.Touch()
	return nil
}

// Rename updates the display name, keeping the SKU stable
func (i *InventoryItem) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	i.Name = name
	i.Touch()
	return nil
}

// IsUnsynced reports whether the item has never been touched by a fetch
func (i *InventoryItem) IsUnsynced() bool {
	return i.LastSyncedAt == nil
}

// IsStale reports whether the last sync is older than the threshold.
// Unsynced items are not stale; they are counted separately.
func (i *InventoryItem) IsStale(threshold time.Duration, now time.Time) bool {
	if i.LastSyncedAt == nil {
		return false
	}
	return now.Sub(*i.LastSyncedAt) > threshold
}

// HasStock reports whether the current quantity is positive
func (i *InventoryItem) HasStock() bool {
	return i.CurrentQuantity.GreaterThan(decimal.Zero)
}

// SKUFromName derives a stable SKU slug from a canonical item name:
// lower-cased, runs of non-alphanumerics collapsed to single hyphens.
// "Wheat Flour (25kg)" becomes "wheat-flour-25kg".
func SKUFromName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
