// Package cleanup provides the background cache sweeper.
package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/manager"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
)

// Worker sweeps expired entries out of every tenant's structure caches on an
// interval. TTL checks on the read path already treat expired entries as
// misses; the sweeper exists so abandoned tenants do not pin memory.
type Worker struct {
	cache  *manager.Manager
	config *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache *manager.Manager, config *Config) *Worker {
	return &Worker{
		cache:  cache,
		config: config,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	log.Printf("Cache cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache cleanup worker stopping...")
			return
		case <-ticker.C:
			w.performCleanup(ctx)
		}
	}
}

// performCleanup executes cleanup for all active tenants
func (w *Worker) performCleanup(ctx context.Context) {
	start := time.Now()
	reporter := NewReporter(w.cache)

	tenants, err := w.getActiveTenants()
	if err != nil {
		reporter.LogError("Cache cleanup failed to get active tenants", err)
		return
	}

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC CACHE CLEANUP")
		for _, tenantID := range tenants {
			fmt.Print(reporter.GenerateTenantReport(tenantID))
		}
	}

	for _, tenantID := range tenants {
		select {
		case <-ctx.Done():
			return
		default:
			w.cache.PurgeExpired(tenantID)
		}
	}

	duration := time.Since(start)
	if w.config.VerboseReporting {
		reporter.LogInfo("Cache cleanup completed for %d tenants (%v)", len(tenants), duration)
	}
}

// getActiveTenants merges the on-disk registry with tenants that already have
// live cache structures in this process.
func (w *Worker) getActiveTenants() ([]string, error) {
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	activeTenants := make([]string, 0)
	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			activeTenants = append(activeTenants, tenantID)
			seen[tenantID] = true
		}
	}
	for _, tenantID := range w.cache.GetAllTenantIDs() {
		if !seen[tenantID] {
			activeTenants = append(activeTenants, tenantID)
		}
	}

	return activeTenants, nil
}
