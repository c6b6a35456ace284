// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/container"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/cleanup"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/manager"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/server"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// Initialize performs the complete multi-tenant startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Create the channeled logger first so every later phase logs
	// through it.
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// Step 2: Initialize tenant system
	logger.Startup().Info("Initializing tenant system")
	tenantManager := tenant.NewManager(logger)

	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry: %w", err)
	}

	if len(registry.Tenants) == 0 {
		logger.Startup().Info("No tenants in registry, creating default tenant")
		if err := tenant.RegisterTenant(config.DefaultTenantID); err != nil {
			return fmt.Errorf("failed to register default tenant: %w", err)
		}
		registry, err = tenant.LoadTenantRegistry()
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}
	}
	logger.Startup().Info("Tenant registry loaded", "tenants", len(registry.Tenants))

	// Step 3: Pre-activate tenant database connections
	if !config.SetupMode {
		if err := tenantManager.PreActivateAllTenants(); err != nil {
			return fmt.Errorf("tenant pre-activation failed: %w", err)
		}
		logger.Startup().Info("Tenant pre-activation complete",
			"active", len(tenantManager.GetActiveTenantIDs()))
	} else {
		logger.Startup().Info("Setup mode: skipping storage activation")
	}

	// Step 4: Initialize cache system
	cacheManager := manager.NewManager()
	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			cacheManager.InitializeTenant(tenantID)
		}
	}
	logger.Startup().Info("Cache system initialized")

	// Step 5: Create dependency injection container
	appContainer := container.NewContainer(tenantManager, cacheManager, logger)
	logger.Startup().Info("Dependency injection container created")

	// Step 6: Open the distributed cache used for warm starts
	if !config.SetupMode {
		if err := appContainer.DistributedCache.Initialize(ctx); err != nil {
			logger.Startup().Warn("Distributed cache unavailable, cold starts only", "error", err.Error())
		}
	}

	// Step 7: Start the version broadcaster
	go appContainer.VersionBroadcaster.Run()
	logger.Startup().Info("Version broadcaster started")

	// Step 8: Initialize the content structure for every registered tenant
	startWarmTime := time.Now()
	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status != "active" {
			continue
		}
		if err := appContainer.StructureService.Initialize(ctx, tenantID); err != nil {
			logger.Startup().Error("Structure initialization failed",
				"tenantId", tenantID, "error", err.Error())
			continue
		}
		logger.Startup().Info("Structure initialized", "tenantId", tenantID,
			"health", appContainer.StructureService.GetHealthStatus(tenantID))
	}
	logger.Startup().Info("Structure warm-up completed", "duration", time.Since(startWarmTime))

	// Step 9: Start background cleanup worker
	cleanupConfig := cleanup.NewConfig()
	cleanupWorker := cleanup.NewWorker(cacheManager, cleanupConfig)
	go cleanupWorker.Start(ctx)
	logger.Startup().Info("Background cleanup worker started")

	// Step 10: Start HTTP server
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"tenants", len(registry.Tenants),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := appContainer.DistributedCache.Close(); err != nil {
		logger.Shutdown().Error("Error closing distributed cache", "error", err.Error())
	}

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	} else {
		logger.Shutdown().Info("Tenant manager closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
