package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/inventory"
)

// InventoryItemResponse represents an inventory item in API responses
type InventoryItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	CurrentQuantity   decimal.Decimal `json:"current_quantity"`
	LastPurchasePrice decimal.Decimal `json:"last_purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	LastSyncedAt      *time.Time      `json:"last_synced_at,omitempty"`
	SyncAgeSeconds    *int64          `json:"sync_age_seconds,omitempty"`
	Unsynced          bool            `json:"unsynced"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ItemDetailResponse bundles an item with its recent audit trail
type ItemDetailResponse struct {
	Item      InventoryItemResponse       `json:"item"`
	Purchases []PurchaseResponse          `json:"purchases"`
	History   []StockHistoryEntryResponse `json:"history"`
	Movements []StockMovementResponse     `json:"movements"`
}

// ItemListFilter represents filter options for the inventory item list
type ItemListFilter struct {
	Search   string `form:"search"`
	Stale    bool   `form:"stale"`
	Unsynced bool   `form:"unsynced"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// AdjustStockRequest represents a manual stock correction
type AdjustStockRequest struct {
	// Delta is the signed quantity change; positive adds, negative removes
	Delta decimal.Decimal `json:"delta" binding:"required"`
	// Note records why the correction was needed
	Note string `json:"note" binding:"required,min=1,max=255"`
}

// CreatePurchaseRequest represents a manual purchase entry. The item is
// referenced by ID, or by name for items not yet in the catalog.
type CreatePurchaseRequest struct {
	ItemID        *uuid.UUID      `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Supplier      string          `json:"supplier"`
	PurchasedAt   *time.Time      `json:"purchased_at"`
}

// UpdatePurchaseRequest represents a purchase edit; nil fields are left
// unchanged
type UpdatePurchaseRequest struct {
	Quantity      *decimal.Decimal `json:"quantity"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	Supplier      *string          `json:"supplier"`
}

// DeletionRequest carries the reason for a deletion request or rejection
type DeletionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// PurchaseListFilter represents filter options for the purchase list
type PurchaseListFilter struct {
	ItemID         *uuid.UUID `form:"item_id"`
	DeletionStatus string     `form:"deletion_status" binding:"omitempty,oneof=none pending approved rejected"`
	Supplier       string     `form:"supplier"`
	PurchasedAfter *time.Time `form:"purchased_after" time_format:"2006-01-02"`
	Page           int        `form:"page"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PurchaseResponse represents a purchase in API responses
type PurchaseResponse struct {
	ID                  uuid.UUID       `json:"id"`
	InventoryItemID     uuid.UUID       `json:"inventory_item_id"`
	ItemName            string          `json:"item_name"`
	Quantity            decimal.Decimal `json:"quantity"`
	RemainingQuantity   decimal.Decimal `json:"remaining_quantity"`
	PurchasePrice       decimal.Decimal `json:"purchase_price"`
	SellingPrice        decimal.Decimal `json:"selling_price"`
	Supplier            string          `json:"supplier,omitempty"`
	PurchasedAt         time.Time       `json:"purchased_at"`
	Source              string          `json:"source,omitempty"`
	DeletionStatus      string          `json:"deletion_status"`
	DeletionRequestedBy string          `json:"deletion_requested_by,omitempty"`
	DeletionRequestedAt *time.Time      `json:"deletion_requested_at,omitempty"`
	DeletionReason      string          `json:"deletion_reason,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Version             int             `json:"version"`
}

// StockHistoryEntryResponse represents one audit trail entry
type StockHistoryEntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	SKU            string          `json:"sku"`
	Delta          decimal.Decimal `json:"delta"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	Reason         string          `json:"reason"`
	RefType        string          `json:"ref_type,omitempty"`
	RefID          string          `json:"ref_id,omitempty"`
	Actor          string          `json:"actor"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StockMovementResponse represents one movement ledger row
type StockMovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	SKU            string          `json:"sku"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
	RefType        string          `json:"ref_type"`
	RefID          string          `json:"ref_id"`
	Actor          string          `json:"actor"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// ToInventoryItemResponse converts a domain item to a response DTO
func ToInventoryItemResponse(item *inventory.InventoryItem) *InventoryItemResponse {
	if item == nil {
		return nil
	}
	resp := &InventoryItemResponse{
		ID:                item.ID,
		SKU:               item.SKU,
		Name:              item.Name,
		CurrentQuantity:   item.CurrentQuantity,
		LastPurchasePrice: item.LastPurchasePrice,
		SellingPrice:      item.SellingPrice,
		LastSyncedAt:      item.LastSyncedAt,
		Unsynced:          item.IsUnsynced(),
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
		Version:           item.Version,
	}
	if item.LastSyncedAt != nil {
		age := int64(time.Since(*item.LastSyncedAt).Seconds())
		resp.SyncAgeSeconds = &age
	}
	return resp
}

// ToInventoryItemResponses converts a slice of domain items to response DTOs
func ToInventoryItemResponses(items []inventory.InventoryItem) []InventoryItemResponse {
	responses := make([]InventoryItemResponse, len(items))
	for i := range items {
		responses[i] = *ToInventoryItemResponse(&items[i])
	}
	return responses
}

// ToPurchaseResponse converts a domain purchase to a response DTO
func ToPurchaseResponse(p *inventory.Purchase) *PurchaseResponse {
	if p == nil {
		return nil
	}
	return &PurchaseResponse{
		ID:                  p.ID,
		InventoryItemID:     p.InventoryItemID,
		ItemName:            p.ItemName,
		Quantity:            p.Quantity,
		RemainingQuantity:   p.RemainingQuantity,
		PurchasePrice:       p.PurchasePrice,
		SellingPrice:        p.SellingPrice,
		Supplier:            p.Supplier,
		PurchasedAt:         p.PurchasedAt,
		Source:              p.SourceRef.Source,
		DeletionStatus:      p.DeletionStatus.String(),
		DeletionRequestedBy: p.DeletionRequestedBy,
		DeletionRequestedAt: p.DeletionRequestedAt,
		DeletionReason:      p.DeletionReason,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		Version:             p.Version,
	}
}

// ToPurchaseResponses converts a slice of domain purchases to response DTOs
func ToPurchaseResponses(purchases []inventory.Purchase) []PurchaseResponse {
	responses := make([]PurchaseResponse, len(purchases))
	for i := range purchases {
		responses[i] = *ToPurchaseResponse(&purchases[i])
	}
	return responses
}

// ToStockHistoryEntryResponse converts a domain history entry to a response DTO
func ToStockHistoryEntryResponse(e *inventory.StockHistoryEntry) *StockHistoryEntryResponse {
	if e == nil {
		return nil
	}
	return &StockHistoryEntryResponse{
		ID:             e.ID,
		SKU:            e.SKU,
		Delta:          e.Delta,
		QuantityBefore: e.QuantityBefore,
		QuantityAfter:  e.QuantityAfter,
		Reason:         e.Reason.String(),
		RefType:        e.RefType,
		RefID:          e.RefID,
		Actor:          e.Actor,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
	}
}

// ToStockHistoryEntryResponses converts a slice of history entries
func ToStockHistoryEntryResponses(entries []inventory.StockHistoryEntry) []StockHistoryEntryResponse {
	responses := make([]StockHistoryEntryResponse, len(entries))
	for i := range entries {
		responses[i] = *ToStockHistoryEntryResponse(&entries[i])
	}
	return responses
}

// ToStockMovementResponse converts a domain movement to a response DTO
func ToStockMovementResponse(m *inventory.StockMovement) *StockMovementResponse {
	if m == nil {
		return nil
	}
	return &StockMovementResponse{
		ID:             m.ID,
		SKU:            m.SKU,
		Type:           m.Type.String(),
		Quantity:       m.Quantity,
		SignedQuantity: m.SignedQuantity(),
		RefType:        m.RefType,
		RefID:          m.RefID,
		Actor:          m.Actor,
		OccurredAt:     m.OccurredAt,
	}
}

// ToStockMovementResponses converts a slice of movements to response DTOs
func ToStockMovementResponses(movements []inventory.StockMovement) []StockMovementResponse {
	responses := make([]StockMovementResponse, len(movements))
	for i := range movements {
		responses[i] = *ToStockMovementResponse(&movements[i])
	}
	return responses
}
