package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/stocksync/backend/internal/application/report"
)

// ReconciliationHandler handles stock reconciliation API endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciliationService *reportapp.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciliationService *reportapp.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

// GetReport godoc
// @Summary      Stock reconciliation report
// @Description  Cross-references purchases against sales per canonical item and classifies each item's stock position. Computed from the ledger on every call.
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=report.ReconciliationReport}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /reconciliation [get]
func (h *ReconciliationHandler) GetReport(c *gin.Context) {
	rpt, err := h.reconciliationService.BuildReport(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rpt)
}
