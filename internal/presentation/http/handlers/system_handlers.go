package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/manager"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

// SystemHandlers contains the health, diagnostics, and metrics endpoints.
type SystemHandlers struct {
	service      *services.StructureService
	cacheManager *manager.Manager
	logger       *logging.ChanneledLogger
}

// NewSystemHandlers creates system handlers with injected dependencies
func NewSystemHandlers(service *services.StructureService, cacheManager *manager.Manager, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{service: service, cacheManager: cacheManager, logger: logger}
}

// GetHealth reports the tenant's structure health.
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	health := h.service.GetHealthStatus(tenantID)

	status := http.StatusOK
	if health.Status == services.StatusError {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// GetDiagnostics returns the deep inspection payload for the admin surface.
func (h *SystemHandlers) GetDiagnostics(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	diag := h.service.GetDiagnostics(tenantID)
	c.JSON(http.StatusOK, gin.H{
		"diagnostics": diag,
		"memory":      h.cacheManager.GetMemoryStats(),
	})
}

// GetMetrics returns completed operation markers for the tenant.
func (h *SystemHandlers) GetMetrics(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	c.JSON(http.StatusOK, gin.H{
		"operations": h.service.GetMetrics(tenantID),
		"cache":      h.cacheManager.GetTenantStats(tenantID),
	})
}

// GetLogLevels reports per-channel logger levels.
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}

// SetLogLevel adjusts one channel's level at runtime.
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(req.Level)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown level " + req.Level})
		return
	}
	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": req.Channel, "level": req.Level})
}
