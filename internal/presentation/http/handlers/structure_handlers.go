package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// StructureHandlers contains the structure read and lifecycle endpoints.
type StructureHandlers struct {
	service *services.StructureService
	logger  *logging.ChanneledLogger
}

// NewStructureHandlers creates structure handlers with injected dependencies
func NewStructureHandlers(service *services.StructureService, logger *logging.ChanneledLogger) *StructureHandlers {
	return &StructureHandlers{service: service, logger: logger}
}

// PostInitialize brings the tenant's structure to the initialized state.
func (h *StructureHandlers) PostInitialize(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	start := time.Now()

	if err := h.service.Initialize(c.Request.Context(), tenantID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Structure().Info("Initialize request completed", "tenantId", tenantID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"status":  h.service.Status(tenantID),
		"version": h.service.Version(tenantID),
	})
}

// PostRefresh forces a full reload, clearing a terminal error state.
func (h *StructureHandlers) PostRefresh(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	start := time.Now()

	if err := h.service.Refresh(c.Request.Context(), tenantID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Structure().Info("Refresh request completed", "tenantId", tenantID, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"status":  h.service.Status(tenantID),
		"version": h.service.Version(tenantID),
	})
}

// GetContentStructure returns the full nested tree.
func (h *StructureHandlers) GetContentStructure(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	tree, err := h.service.GetContentStructure(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    tree,
		"version": h.service.Version(tenantID),
	})
}

// GetNavigation returns the depth-limited navigation view. maxDepth and a
// comma-separated expanded id list are optional query params.
func (h *StructureHandlers) GetNavigation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	maxDepth := 2
	if raw := c.Query("maxDepth"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxDepth = parsed
		}
	}
	var expandedIDs []string
	if raw := c.Query("expanded"); raw != "" {
		expandedIDs = strings.Split(raw, ",")
	}

	nav, err := h.service.GetNavigationStructureProgressive(c.Request.Context(), tenantID, maxDepth, expandedIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    nav,
		"version": h.service.Version(tenantID),
	})
}

// GetBreadcrumb returns the root-first ancestor chain for ?path=.
func (h *StructureHandlers) GetBreadcrumb(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query param is required"})
		return
	}

	crumb, err := h.service.GetBreadcrumb(c.Request.Context(), tenantID, path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": crumb})
}

// GetNodeChildren returns a node's direct children.
func (h *StructureHandlers) GetNodeChildren(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	children, err := h.service.GetNodeChildren(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": children})
}

// GetDescendants returns every node below the given one.
func (h *StructureHandlers) GetDescendants(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	descendants, err := h.service.GetDescendants(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": descendants})
}

// GetNodePath resolves a node id to its path.
func (h *StructureHandlers) GetNodePath(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	path, err := h.service.GetNodePath(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

// GetVersion returns the opaque structure version for client polling.
func (h *StructureHandlers) GetVersion(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	c.JSON(http.StatusOK, gin.H{
		"version": h.service.Version(tenantID),
		"status":  h.service.Status(tenantID),
	})
}

// GetValidation reports structural invariant violations without repairing.
func (h *StructureHandlers) GetValidation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	issues, err := h.service.ValidateStructure(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "valid": len(issues) == 0})
}
