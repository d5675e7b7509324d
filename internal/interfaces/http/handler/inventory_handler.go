package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	invapp "github.com/stocksync/backend/internal/application/inventory"
)

// InventoryHandler handles inventory item API endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *invapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *invapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// AdjustStockRequest represents a manual stock correction
// @Description Request body for a manual stock correction
type AdjustStockRequest struct {
	Delta float64 `json:"delta" binding:"required" example:"-2"`
	Note  string  `json:"note" binding:"required,min=1,max=255" example:"Broken in storage"`
}

// List godoc
// @Summary      List inventory items
// @Description  Returns items with current stock and sync age. stale=true keeps only items whose last sync is older than the staleness threshold; unsynced=true keeps items never seen in a fetch.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        search query string false "Search by SKU or name"
// @Param        stale query bool false "Only items with outdated sync data"
// @Param        unsynced query bool false "Only items never synced"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]invapp.InventoryItemResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory/items [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var filter invapp.ItemListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// GetDetail godoc
// @Summary      Get item detail
// @Description  Returns one item with its purchases, stock history and recent movements
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=invapp.ItemDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory/items/{id} [get]
func (h *InventoryHandler) GetDetail(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	detail, err := h.inventoryService.GetItemDetail(c.Request.Context(), itemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, detail)
}

// GetBySKU godoc
// @Summary      Get item by SKU
// @Description  Retrieve a single item by its SKU
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        sku path string true "Item SKU"
// @Success      200 {object} dto.Response{data=invapp.InventoryItemResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inventory/items/sku/{sku} [get]
func (h *InventoryHandler) GetBySKU(c *gin.Context) {
	item, err := h.inventoryService.GetItemBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// AdjustStock godoc
// @Summary      Adjust stock manually
// @Description  Applies a signed quantity correction to an item and records it in the stock history with the given note
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Param        request body AdjustStockRequest true "Correction to apply"
// @Success      200 {object} dto.Response{data=invapp.InventoryItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), getActor(c), itemID, invapp.AdjustStockRequest{
		Delta: decimal.NewFromFloat(req.Delta),
		Note:  req.Note,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}
