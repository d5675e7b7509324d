package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/stocksync/backend/internal/application/report"
)

// HealthHandler handles sync health API endpoints
type HealthHandler struct {
	BaseHandler
	healthService *reportapp.SyncHealthService
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(healthService *reportapp.SyncHealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// GetSyncHealth godoc
// @Summary      Sync health score
// @Description  Scores how trustworthy current stock numbers are, based on fetch recency, failure streaks, unmatched names and pending deletions. 100 means fresh and clean.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=report.HealthReport}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/health [get]
func (h *HealthHandler) GetSyncHealth(c *gin.Context) {
	rpt, err := h.healthService.Evaluate(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rpt)
}
