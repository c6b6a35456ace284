package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// CollectionHandlers contains the collection lookup endpoints.
type CollectionHandlers struct {
	service *services.StructureService
	logger  *logging.ChanneledLogger
}

// NewCollectionHandlers creates collection handlers with injected dependencies
func NewCollectionHandlers(service *services.StructureService, logger *logging.ChanneledLogger) *CollectionHandlers {
	return &CollectionHandlers{service: service, logger: logger}
}

// GetCollections lists every collection node.
func (h *CollectionHandlers) GetCollections(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	start := time.Now()

	collections, err := h.service.GetCollections(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Content().Debug("Get collections completed", "tenantId", tenantID,
		"count", len(collections), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"data": collections})
}

// GetFirstCollection returns the path-first collection. ?forceRefresh=true
// bypasses the 60s memo.
func (h *CollectionHandlers) GetFirstCollection(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	forceRefresh := c.Query("forceRefresh") == "true"

	node, err := h.service.GetFirstCollection(c.Request.Context(), tenantID, forceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": node})
}

// GetCollection resolves a collection by identifier: a path, a node id, or
// the collection schema's own id.
func (h *CollectionHandlers) GetCollection(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	identifier := c.Param("identifier")
	forceRefresh := c.Query("forceRefresh") == "true"

	node, err := h.service.GetCollection(c.Request.Context(), identifier, tenantID, forceRefresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": node})
}

// GetCollectionStats returns the narrow stats projection for list headers.
func (h *CollectionHandlers) GetCollectionStats(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	stats, err := h.service.GetCollectionStats(c.Request.Context(), c.Param("identifier"), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
