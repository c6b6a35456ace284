// Package manager provides the cache facade that combines the structure
// cache tiers behind the interfaces.StructureCache contract.
package manager

import (
	"runtime"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/interfaces"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/stores"
)

// Manager is the single entry point for all in-process structure caching.
type Manager struct {
	structure *stores.StructureStore
	started   time.Time
}

// NewManager creates a cache manager with empty stores.
func NewManager() *Manager {
	return &Manager{
		structure: stores.NewStructureStore(),
		started:   time.Now().UTC(),
	}
}

// Structure exposes the underlying store for tests and diagnostics.
func (m *Manager) Structure() *stores.StructureStore { return m.structure }

// InitializeTenant creates cache structures for a tenant.
func (m *Manager) InitializeTenant(tenantID string) {
	m.structure.InitializeTenant(tenantID)
}

func (m *Manager) GetFirstCollection(tenantID string) (*content.ContentNode, bool) {
	return m.structure.GetFirstCollection(tenantID)
}

func (m *Manager) SetFirstCollection(tenantID string, node *content.ContentNode) {
	m.structure.SetFirstCollection(tenantID, node)
}

func (m *Manager) InvalidateFirstCollection(tenantID string) {
	m.structure.InvalidateFirstCollection(tenantID)
}

func (m *Manager) GetCollection(tenantID, identifier string) (*content.ContentNode, bool) {
	return m.structure.GetCollection(tenantID, identifier)
}

func (m *Manager) SetCollection(tenantID, identifier string, node *content.ContentNode) {
	m.structure.SetCollection(tenantID, identifier, node)
}

func (m *Manager) GetCollectionStats(tenantID, collectionID string) (*content.CollectionStats, bool) {
	return m.structure.GetCollectionStats(tenantID, collectionID)
}

func (m *Manager) SetCollectionStats(tenantID, collectionID string, stats *content.CollectionStats) {
	m.structure.SetCollectionStats(tenantID, collectionID, stats)
}

func (m *Manager) RegisterDependency(tenantID, nodeID, dependentID string) {
	m.structure.RegisterDependency(tenantID, nodeID, dependentID)
}

func (m *Manager) InvalidateSpecificCaches(tenantID string, identifiers []string) {
	m.structure.InvalidateSpecificCaches(tenantID, identifiers)
}

func (m *Manager) InvalidateWithDependents(tenantID, nodeID string) {
	m.structure.InvalidateWithDependents(tenantID, nodeID)
}

func (m *Manager) InvalidateTenant(tenantID string) {
	m.structure.InvalidateTenant(tenantID)
}

func (m *Manager) PurgeExpired(tenantID string) {
	m.structure.PurgeExpired(tenantID)
}

func (m *Manager) GetTenantStats(tenantID string) interfaces.CacheStats {
	return m.structure.GetTenantStats(tenantID)
}

// GetAllTenantIDs lists every tenant with cache structures.
func (m *Manager) GetAllTenantIDs() []string {
	return m.structure.GetAllTenantIDs()
}

// GetMemoryStats reports process memory alongside cache dimensions.
func (m *Manager) GetMemoryStats() map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return map[string]any{
		"allocMB":      ms.Alloc / 1024 / 1024,
		"totalAllocMB": ms.TotalAlloc / 1024 / 1024,
		"sysMB":        ms.Sys / 1024 / 1024,
		"numGC":        ms.NumGC,
		"goroutines":   runtime.NumGoroutine(),
		"tenants":      len(m.structure.GetAllTenantIDs()),
		"uptime":       time.Since(m.started).String(),
	}
}

// Health reports per-tenant cache stats for the health endpoint.
func (m *Manager) Health() map[string]any {
	tenants := make(map[string]any)
	for _, tenantID := range m.structure.GetAllTenantIDs() {
		tenants[tenantID] = m.structure.GetTenantStats(tenantID)
	}
	return map[string]any{
		"status":  "ok",
		"tenants": tenants,
		"uptime":  time.Since(m.started).String(),
	}
}

var _ interfaces.StructureCache = (*Manager)(nil)
