package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	mapapp "github.com/stocksync/backend/internal/application/mapping"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
)

// MappingHandler handles item alias mapping API endpoints
type MappingHandler struct {
	BaseHandler
	mappingService *mapapp.MappingService
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(mappingService *mapapp.MappingService) *MappingHandler {
	return &MappingHandler{
		mappingService: mappingService,
	}
}

// UpsertMappingRequest represents a request to create or extend a mapping
// @Description Request body for creating a mapping or adding aliases to an existing one
type UpsertMappingRequest struct {
	CanonicalName string   `json:"canonical_name" binding:"required,min=1,max=200" example:"Arabica Beans 1kg"`
	Aliases       []string `json:"aliases" binding:"omitempty,dive,min=1,max=200" example:"ARABICA BEANS 1KG,arabica beans 1 kg"`
}

// ReplaceMappingRequest represents a request to replace a mapping's alias set
// @Description Request body replacing all aliases of a mapping
type ReplaceMappingRequest struct {
	Aliases []string `json:"aliases" binding:"omitempty,dive,min=1,max=200" example:"ARABICA BEANS 1KG"`
	Active  *bool    `json:"active" example:"true"`
}

// ListMappingsRequest represents mapping list query parameters
// @Description Query parameters for listing mappings
type ListMappingsRequest struct {
	Active   *bool  `form:"active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Upsert godoc
// @Summary      Create or extend a mapping
// @Description  Creates a mapping for the canonical name, or adds the given aliases to the existing one. An alias already owned by another mapping is rejected.
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Param        request body UpsertMappingRequest true "Mapping to create or extend"
// @Success      200 {object} dto.Response{data=mapapp.MappingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /item-alias/mapping [post]
func (h *MappingHandler) Upsert(c *gin.Context) {
	var req UpsertMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.mappingService.UpsertMapping(c.Request.Context(), mapapp.UpsertMappingRequest{
		CanonicalName: req.CanonicalName,
		Aliases:       req.Aliases,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Replace godoc
// @Summary      Replace a mapping
// @Description  Replaces the mapping's alias set wholesale and optionally toggles its active flag
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Param        canonical path string true "Canonical item name"
// @Param        request body ReplaceMappingRequest true "New alias set"
// @Success      200 {object} dto.Response{data=mapapp.MappingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /item-alias/mapping/{canonical} [put]
func (h *MappingHandler) Replace(c *gin.Context) {
	canonical := c.Param("canonical")

	var req ReplaceMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.mappingService.ReplaceMapping(c.Request.Context(), canonical, mapapp.ReplaceMappingRequest{
		Aliases: req.Aliases,
		Active:  req.Active,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @Summary      Delete a mapping
// @Description  Deactivates a mapping so it no longer resolves. With hard=true the mapping and its aliases are removed entirely; that form needs the admin key.
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Param        canonical path string true "Canonical item name"
// @Param        hard query bool false "Remove the mapping instead of deactivating it"
// @Success      204
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /item-alias/mapping/{canonical} [delete]
func (h *MappingHandler) Delete(c *gin.Context) {
	canonical := c.Param("canonical")
	hard, _ := strconv.ParseBool(c.Query("hard"))

	if hard && !middleware.AdminVerified(c) {
		h.Forbidden(c, "Hard deletion requires the admin key")
		return
	}

	if err := h.mappingService.DeleteMapping(c.Request.Context(), canonical, hard); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Get godoc
// @Summary      Get one mapping
// @Description  Retrieve a single mapping by its canonical name
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Param        canonical path string true "Canonical item name"
// @Success      200 {object} dto.Response{data=mapapp.MappingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /item-alias/mapping/{canonical} [get]
func (h *MappingHandler) Get(c *gin.Context) {
	result, err := h.mappingService.GetMapping(c.Request.Context(), c.Param("canonical"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
// @Summary      List mappings
// @Description  Returns mappings with their aliases, optionally filtered
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Param        active query bool false "Filter by active flag"
// @Param        search query string false "Search canonical names and aliases"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]mapapp.MappingResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /item-alias/mappings [get]
func (h *MappingHandler) List(c *gin.Context) {
	var req ListMappingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	mappings, total, err := h.mappingService.ListMappings(c.Request.Context(), mapping.ItemMappingFilter{
		Active:        req.Active,
		SearchKeyword: req.Search,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, mappings, total, req.Page, req.PageSize)
}

// Suggestions godoc
// @Summary      Mapping suggestions
// @Description  Lists sale-side item names that resolve to no canonical item, grouped by normalized spelling so near-duplicates land together
// @Tags         item-alias
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]mapping.Suggestion}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /item-alias/suggestions [get]
func (h *MappingHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.mappingService.Suggestions(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, suggestions)
}

// Helper function to suppress unused import warning
var _ = dto.Response{}
