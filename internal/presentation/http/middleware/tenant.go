// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/performance"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
)

// TenantMiddleware resolves the request's tenant from the X-Tenant-ID header
// (or tenantId query param for websocket clients) and attaches the tenant
// context. Requests without a tenant fall back to the default tenant.
func TenantMiddleware(tenantManager *tenant.Manager, perfTracker *performance.Tracker) gin.HandlerFunc {
	logger := tenantManager.GetLogger()

	return func(c *gin.Context) {
		start := time.Now()

		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			tenantID = c.Query("tenantId")
		}
		tenantID = tenant.ResolveTenantID(tenantID)

		marker := perfTracker.StartOperation("middleware_tenant_resolution", tenantID)
		defer marker.Complete()
		marker.AddMetadata("path", c.Request.URL.Path)
		marker.AddMetadata("method", c.Request.Method)

		tenantCtx, err := tenantManager.GetContext(tenantID)
		if err != nil {
			logger.Tenant().Error("Tenant resolution failed", "error", err.Error(), "tenantId", tenantID)
			marker.SetSuccess(false)
			marker.SetError(err)
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			c.Abort()
			return
		}

		logger.Tenant().Debug("Tenant context resolved",
			"tenantId", tenantCtx.TenantID,
			"duration", time.Since(start),
			"database", tenantCtx.Database.GetConnectionInfo(),
		)
		marker.SetSuccess(true)

		c.Set("tenant", tenantCtx)
		c.Set("tenantId", tenantCtx.TenantID)

		c.Next()
	}
}

// GetTenantContext retrieves the tenant context from gin context.
func GetTenantContext(c *gin.Context) (*tenant.Context, bool) {
	tenantCtx, exists := c.Get("tenant")
	if !exists {
		return nil, false
	}

	ctx, ok := tenantCtx.(*tenant.Context)
	return ctx, ok
}

// GetTenantID returns the resolved tenant id for the request.
func GetTenantID(c *gin.Context) string {
	if id, exists := c.Get("tenantId"); exists {
		if tenantID, ok := id.(string); ok {
			return tenantID
		}
	}
	return tenant.ResolveTenantID("")
}
