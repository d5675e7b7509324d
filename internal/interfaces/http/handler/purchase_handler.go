package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	invapp "github.com/stocksync/backend/internal/application/inventory"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// PurchaseHandler handles purchase ledger API endpoints
type PurchaseHandler struct {
	BaseHandler
	purchaseService *invapp.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchaseService *invapp.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// CreatePurchaseRequest represents a request to record a purchase manually
// @Description Request body for recording a manual purchase
type CreatePurchaseRequest struct {
	ItemID        *string    `json:"item_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	ItemName      string     `json:"item_name" binding:"omitempty,max=200" example:"Arabica Beans 1kg"`
	Quantity      float64    `json:"quantity" binding:"required,gt=0" example:"24"`
	PurchasePrice float64    `json:"purchase_price" binding:"omitempty,gte=0" example:"8.50"`
	SellingPrice  float64    `json:"selling_price" binding:"omitempty,gte=0" example:"12.90"`
	Supplier      string     `json:"supplier" binding:"omitempty,max=200" example:"Beanhouse Ltd"`
	PurchasedAt   *time.Time `json:"purchased_at" example:"2026-01-02T00:00:00Z"`
}

// UpdatePurchaseRequest represents a request to edit a purchase
// @Description Request body for editing a purchase; omitted fields keep their value
type UpdatePurchaseRequest struct {
	Quantity      *float64 `json:"quantity" binding:"omitempty,gt=0" example:"30"`
	PurchasePrice *float64 `json:"purchase_price" binding:"omitempty,gte=0" example:"8.20"`
	SellingPrice  *float64 `json:"selling_price" binding:"omitempty,gte=0" example:"13.50"`
	Supplier      *string  `json:"supplier" binding:"omitempty,max=200" example:"Beanhouse Ltd"`
}

// DeletionReasonRequest carries the reason for a deletion request or rejection
// @Description Request body carrying an optional free-text reason
type DeletionReasonRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255" example:"Entered twice"`
}

// Create godoc
// @Summary      Record a purchase
// @Description  Records a manual purchase and adds its quantity to stock. The item is referenced by ID, or by name for items not yet known.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        request body CreatePurchaseRequest true "Purchase to record"
// @Success      201 {object} dto.Response{data=invapp.PurchaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /purchases [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := invapp.CreatePurchaseRequest{
		ItemName:      req.ItemName,
		Quantity:      decimal.NewFromFloat(req.Quantity),
		PurchasePrice: decimal.NewFromFloat(req.PurchasePrice),
		SellingPrice:  decimal.NewFromFloat(req.SellingPrice),
		Supplier:      req.Supplier,
		PurchasedAt:   req.PurchasedAt,
	}

	if req.ItemID != nil && *req.ItemID != "" {
		itemID, err := uuid.Parse(*req.ItemID)
		if err != nil {
			h.BadRequest(c, "Invalid item ID format")
			return
		}
		appReq.ItemID = &itemID
	}

	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), getActor(c), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, purchase)
}

// Update godoc
// @Summary      Edit a purchase
// @Description  Edits a purchase entry and adjusts stock by the quantity difference. Quantity edits are blocked while a deletion is pending.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body UpdatePurchaseRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=invapp.PurchaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /purchases/{id} [put]
func (h *PurchaseHandler) Update(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID format")
		return
	}

	var req UpdatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := invapp.UpdatePurchaseRequest{
		Supplier: req.Supplier,
	}
	if req.Quantity != nil {
		d := decimal.NewFromFloat(*req.Quantity)
		appReq.Quantity = &d
	}
	if req.PurchasePrice != nil {
		d := decimal.NewFromFloat(*req.PurchasePrice)
		appReq.PurchasePrice = &d
	}
	if req.SellingPrice != nil {
		d := decimal.NewFromFloat(*req.SellingPrice)
		appReq.SellingPrice = &d
	}

	purchase, err := h.purchaseService.UpdatePurchase(c.Request.Context(), getActor(c), purchaseID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, purchase)
}

// List godoc
// @Summary      List purchases
// @Description  Returns purchases newest first, with optional filters
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        item_id query string false "Filter by inventory item" format(uuid)
// @Param        deletion_status query string false "Filter by deletion status" Enums(none, pending, approved, rejected)
// @Param        supplier query string false "Filter by supplier name"
// @Param        purchased_after query string false "Only purchases on or after this date (YYYY-MM-DD)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]invapp.PurchaseResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	var filter invapp.PurchaseListFilter
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

	purchases, total, err := h.purchaseService.ListPurchases(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, purchases, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get one purchase
// @Description  Retrieve a single purchase by its ID
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Success      200 {object} dto.Response{data=invapp.PurchaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /purchases/{id} [get]
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID format")
		return
	}

	purchase, err := h.purchaseService.GetPurchase(c.Request.Context(), purchaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, purchase)
}

// RequestDeletion godoc
// @Summary      Request purchase deletion
// @Description  Marks a purchase for deletion pending admin approval. The stock effect stays in place until approval.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body DeletionReasonRequest false "Optional reason"
// @Success      200 {object} dto.Response{data=invapp.PurchaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /purchases/{id}/delete-request [post]
func (h *PurchaseHandler) RequestDeletion(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID format")
		return
	}

	var req DeletionReasonRequest
	// Allow empty body
	_ = c.ShouldBindJSON(&req)

	purchase, err := h.purchaseService.RequestDeletion(c.Request.Context(), getActor(c), purchaseID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, purchase)
}

// ApproveDeletion godoc
// @Summary      Approve purchase deletion
// @Description  Approves a pending deletion. The purchase is removed and its remaining quantity is reversed out of stock.
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     AdminKey
// @Router       /purchases/{id}/approve [post]
func (h *PurchaseHandler) ApproveDeletion(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID format")
		return
	}

	if err := h.purchaseService.ApproveDeletion(c.Request.Context(), getActor(c), purchaseID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RejectDeletion godoc
// @Summary      Reject purchase deletion
// @Description  Rejects a pending deletion and returns the purchase to normal state
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        id path string true "Purchase ID" format(uuid)
// @Param        request body DeletionReasonRequest false "Optional reason"
// @Success      200 {object} dto.Response{data=invapp.PurchaseResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     AdminKey
// @Router       /purchases/{id}/reject [post]
func (h *PurchaseHandler) RejectDeletion(c *gin.Context) {
	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid purchase ID format")
		return
	}

	var req DeletionReasonRequest
	// Allow empty body
	_ = c.ShouldBindJSON(&req)

	purchase, err := h.purchaseService.RejectDeletion(c.Request.Context(), getActor(c), purchaseID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, purchase)
}

// Helper function to suppress unused import warning
var _ = dto.Response{}
