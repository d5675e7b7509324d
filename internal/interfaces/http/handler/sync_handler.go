package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	syncapp "github.com/stocksync/backend/internal/application/sync"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
)

// SyncHandler handles fetch trigger and fetch history API endpoints
type SyncHandler struct {
	BaseHandler
	syncService *syncapp.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *syncapp.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// HistoryQueryRequest represents fetch history query parameters
// @Description Query parameters for listing fetch history
type HistoryQueryRequest struct {
	Source string `form:"source" binding:"omitempty,oneof=vendor_portal retail_portal"`
	Kind   string `form:"kind" binding:"omitempty,oneof=invoices orders items"`
	Status string `form:"status" binding:"omitempty,oneof=in_progress completed failed cancelled"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Trigger godoc
// @Summary      Trigger a fetch
// @Description  Starts a portal fetch for the given source. The fetch runs in the background; poll history for the outcome. Only one fetch per source runs at a time.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        source path string true "External source" Enums(vendor_portal, retail_portal)
// @Param        kind query string false "Record kind to fetch; defaults per source" Enums(invoices, orders, items)
// @Success      202 {object} dto.Response{data=syncapp.FetchRecordResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/{source} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	input := syncapp.TriggerFetchInput{
		Source:  sync.Source(c.Param("source")),
		Kind:    sync.FetchKind(c.Query("kind")),
		Trigger: sync.TriggerManual,
		// Attribution is best effort: triggers are open, ledger writes are not
		Actor: middleware.GetJWTUsername(c),
	}
	if input.Kind != "" && !input.Kind.IsValid() {
		h.BadRequest(c, "Unknown fetch kind")
		return
	}

	record, err := h.syncService.TriggerFetch(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Accepted(c, record)
}

// History godoc
// @Summary      List fetch history
// @Description  Returns fetch records newest first. History is retained for a rolling window; older records are purged.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        source query string false "Filter by source" Enums(vendor_portal, retail_portal)
// @Param        kind query string false "Filter by record kind" Enums(invoices, orders, items)
// @Param        status query string false "Filter by status" Enums(in_progress, completed, failed, cancelled)
// @Param        limit query int false "Max records to return" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]syncapp.FetchRecordResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/history [get]
func (h *SyncHandler) History(c *gin.Context) {
	var req HistoryQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	records, err := h.syncService.GetHistory(c.Request.Context(), syncapp.HistoryQuery{
		Source: req.Source,
		Kind:   req.Kind,
		Status: req.Status,
		Limit:  req.Limit,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}

// GetRecord godoc
// @Summary      Get one fetch record
// @Description  Retrieve a single fetch record by its ID
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        id path string true "Fetch record ID" format(uuid)
// @Success      200 {object} dto.Response{data=syncapp.FetchRecordResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/history/{id} [get]
func (h *SyncHandler) GetRecord(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid fetch record ID format")
		return
	}

	record, err := h.syncService.GetRecord(c.Request.Context(), recordID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, record)
}
