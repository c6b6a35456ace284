package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// MutationHandlers contains the structure mutation endpoints.
type MutationHandlers struct {
	service *services.StructureService
	logger  *logging.ChanneledLogger
}

// NewMutationHandlers creates mutation handlers with injected dependencies
func NewMutationHandlers(service *services.StructureService, logger *logging.ChanneledLogger) *MutationHandlers {
	return &MutationHandlers{service: service, logger: logger}
}

// PostUpsertNodes applies a batch of node upserts.
func (h *MutationHandlers) PostUpsertNodes(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	start := time.Now()

	var req struct {
		Nodes []*content.ContentNode `json:"nodes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpsertContentNodes(c.Request.Context(), tenantID, req.Nodes); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Structure().Info("Node upsert completed", "tenantId", tenantID,
		"count", len(req.Nodes), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}

// PostReorder assigns new sibling orders.
func (h *MutationHandlers) PostReorder(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req struct {
		Items []repositories.ReorderItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.ReorderContentNodes(c.Request.Context(), tenantID, req.Items); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}

// PostMove reparents a node together with its entire subtree.
func (h *MutationHandlers) PostMove(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req struct {
		NodeID      string `json:"nodeId" binding:"required"`
		NewParentID string `json:"newParentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.MoveNodeWithDescendants(c.Request.Context(), tenantID, req.NodeID, req.NewParentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}

// DeleteNode removes the node at ?path=.
func (h *MutationHandlers) DeleteNode(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query param is required"})
		return
	}

	if err := h.service.DeleteContentNode(c.Request.Context(), tenantID, path); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}

// PostDependency registers a cache dependency: the dependent's entries are
// cleared whenever the node is invalidated.
func (h *MutationHandlers) PostDependency(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req struct {
		NodeID      string `json:"nodeId" binding:"required"`
		DependentID string `json:"dependentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.service.RegisterCacheDependency(tenantID, req.NodeID, req.DependentID)
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// PostInvalidate removes exactly the cache keys derived from the given
// identifiers.
func (h *MutationHandlers) PostInvalidate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req struct {
		Identifiers []string `json:"identifiers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.service.InvalidateCaches(tenantID, req.Identifiers)
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}
