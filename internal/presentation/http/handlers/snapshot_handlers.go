package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// SnapshotHandlers contains the snapshot and rollback endpoints.
type SnapshotHandlers struct {
	service *services.StructureService
	logger  *logging.ChanneledLogger
}

// NewSnapshotHandlers creates snapshot handlers with injected dependencies
func NewSnapshotHandlers(service *services.StructureService, logger *logging.ChanneledLogger) *SnapshotHandlers {
	return &SnapshotHandlers{service: service, logger: logger}
}

// GetSnapshots lists retained snapshot ids, oldest first.
func (h *SnapshotHandlers) GetSnapshots(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	c.JSON(http.StatusOK, gin.H{"data": h.service.ListSnapshots(tenantID)})
}

// PostSnapshot creates a point-in-time copy of both indexes.
func (h *SnapshotHandlers) PostSnapshot(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req struct {
		ID string `json:"id"`
	}
	// Body is optional; an empty id gets minted.
	_ = c.ShouldBindJSON(&req)

	id, err := h.service.CreateSnapshot(c.Request.Context(), tenantID, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// PostRollback replaces the live indexes with the snapshot's copies.
func (h *SnapshotHandlers) PostRollback(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	if err := h.service.RollbackToSnapshot(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": h.service.Version(tenantID)})
}
