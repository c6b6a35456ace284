// Package stores provides concrete cache store implementations
package stores

import (
	"strings"
	"sync"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/interfaces"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/types"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// StructureStore implements the tiered structure caches with tenant isolation.
// TTLs come from central config: first-collection 60s, per-collection 20s,
// stats 60s by default.
type StructureStore struct {
	tenantCaches map[string]*types.TenantStructureCache
	mu           sync.RWMutex
}

// NewStructureStore creates a new structure cache store.
func NewStructureStore() *StructureStore {
	return &StructureStore{
		tenantCaches: make(map[string]*types.TenantStructureCache),
	}
}

// InitializeTenant creates cache structures for a tenant.
func (ss *StructureStore) InitializeTenant(tenantID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.tenantCaches[tenantID] == nil {
		ss.tenantCaches[tenantID] = types.NewTenantStructureCache()
	}
}

// GetTenantCache safely retrieves a tenant's structure cache.
func (ss *StructureStore) GetTenantCache(tenantID string) (*types.TenantStructureCache, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	cache, exists := ss.tenantCaches[tenantID]
	return cache, exists
}

// GetAllTenantIDs returns all tenant IDs present in the store.
func (ss *StructureStore) GetAllTenantIDs() []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	ids := make([]string, 0, len(ss.tenantCaches))
	for id := range ss.tenantCaches {
		ids = append(ids, id)
	}
	return ids
}

func (ss *StructureStore) ensureTenantCache(tenantID string) *types.TenantStructureCache {
	if cache, exists := ss.GetTenantCache(tenantID); exists {
		return cache
	}
	ss.InitializeTenant(tenantID)
	cache, _ := ss.GetTenantCache(tenantID)
	return cache
}

// =============================================================================
// First-Collection Tier (60s)
// =============================================================================

// GetFirstCollection retrieves the memoized first collection for a tenant.
func (ss *StructureStore) GetFirstCollection(tenantID string) (*content.ContentNode, bool) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.FirstCollection == nil || time.Since(cache.FirstCollection.CachedAt) > config.FirstCollectionTTL {
		cache.Misses++
		return nil, false
	}
	cache.Hits++
	return cache.FirstCollection.Node, true
}

// SetFirstCollection memoizes the first collection for a tenant.
func (ss *StructureStore) SetFirstCollection(tenantID string, node *content.ContentNode) {
	cache := ss.ensureTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.FirstCollection = &types.FirstCollectionEntry{Node: node, CachedAt: time.Now().UTC()}
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateFirstCollection clears the memoized first collection. Mutation
// endpoints call this on every run.
func (ss *StructureStore) InvalidateFirstCollection(tenantID string) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return
	}
	cache.Mu.Lock()
	defer cache.Mu.Unlock()
	cache.FirstCollection = nil
}

// =============================================================================
// Collection-by-Identifier Tier (20s)
// =============================================================================

// GetCollection retrieves a cached collection lookup by identifier.
func (ss *StructureStore) GetCollection(tenantID, identifier string) (*content.ContentNode, bool) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	entry, ok := cache.Collections[identifier]
	if !ok || time.Since(entry.CachedAt) > config.CollectionTTL {
		if ok {
			delete(cache.Collections, identifier)
		}
		cache.Misses++
		return nil, false
	}
	cache.Hits++
	return entry.Node, true
}

// SetCollection caches a resolved collection lookup under its identifier.
func (ss *StructureStore) SetCollection(tenantID, identifier string, node *content.ContentNode) {
	cache := ss.ensureTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Collections[identifier] = &types.CollectionEntry{Node: node, CachedAt: time.Now().UTC()}
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Stats Tier
// =============================================================================

// GetCollectionStats retrieves the cached narrow projection for a collection.
func (ss *StructureStore) GetCollectionStats(tenantID, collectionID string) (*content.CollectionStats, bool) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return nil, false
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	entry, ok := cache.Stats[collectionID]
	if !ok || time.Since(entry.CachedAt) > config.CollectionStatsTTL {
		if ok {
			delete(cache.Stats, collectionID)
		}
		cache.Misses++
		return nil, false
	}
	cache.Hits++
	return entry.Stats, true
}

// SetCollectionStats caches the narrow projection for a collection.
func (ss *StructureStore) SetCollectionStats(tenantID, collectionID string, stats *content.CollectionStats) {
	cache := ss.ensureTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.Stats[collectionID] = &types.StatsEntry{Stats: stats, CachedAt: time.Now().UTC()}
	cache.LastUpdated = time.Now().UTC()
}

// =============================================================================
// Dependency Registration + Invalidation
// =============================================================================

// RegisterDependency records that dependentID's caches must be cleared
// whenever nodeID is invalidated. A simple adjacency set, not a graph solver.
func (ss *StructureStore) RegisterDependency(tenantID, nodeID, dependentID string) {
	cache := ss.ensureTenantCache(tenantID)

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	if cache.Dependents[nodeID] == nil {
		cache.Dependents[nodeID] = make(map[string]bool)
	}
	cache.Dependents[nodeID][dependentID] = true
}

// InvalidateSpecificCaches removes exactly the keys derived from the given
// paths/ids across the collection and stats tiers.
func (ss *StructureStore) InvalidateSpecificCaches(tenantID string, identifiers []string) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	for _, identifier := range identifiers {
		ss.invalidateIdentifierLocked(cache, identifier)
	}
	cache.FirstCollection = nil
	cache.LastUpdated = time.Now().UTC()
}

// InvalidateWithDependents clears the caches for nodeID and additionally for
// every collection registered as depending on it.
func (ss *StructureStore) InvalidateWithDependents(tenantID, nodeID string) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	ss.invalidateIdentifierLocked(cache, nodeID)
	for dependentID := range cache.Dependents[nodeID] {
		ss.invalidateIdentifierLocked(cache, dependentID)
	}
	cache.FirstCollection = nil
	cache.LastUpdated = time.Now().UTC()
}

// invalidateIdentifierLocked removes the exact key, any key prefixed
// "identifier:", and any entry whose cached node matches the identifier by id
// or path. Caller holds cache.Mu.
func (ss *StructureStore) invalidateIdentifierLocked(cache *types.TenantStructureCache, identifier string) {
	for key, entry := range cache.Collections {
		if key == identifier || strings.HasPrefix(key, identifier+":") {
			delete(cache.Collections, key)
			continue
		}
		if entry.Node != nil && (entry.Node.ID == identifier || entry.Node.Path == identifier) {
			delete(cache.Collections, key)
		}
	}
	for key := range cache.Stats {
		if key == identifier || strings.HasPrefix(key, identifier+":") {
			delete(cache.Stats, key)
		}
	}
}

// InvalidateTenant clears every tier for a tenant.
func (ss *StructureStore) InvalidateTenant(tenantID string) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	cache.FirstCollection = nil
	cache.Collections = make(map[string]*types.CollectionEntry)
	cache.Stats = make(map[string]*types.StatsEntry)
	cache.LastUpdated = time.Now().UTC()
}

// PurgeExpired evicts entries past their tier TTL. The background cleanup
// worker calls this periodically so idle tenants do not pin stale entries.
func (ss *StructureStore) PurgeExpired(tenantID string) {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return
	}

	cache.Mu.Lock()
	defer cache.Mu.Unlock()

	now := time.Now()
	if cache.FirstCollection != nil && now.Sub(cache.FirstCollection.CachedAt) > config.FirstCollectionTTL {
		cache.FirstCollection = nil
	}
	for key, entry := range cache.Collections {
		if now.Sub(entry.CachedAt) > config.CollectionTTL {
			delete(cache.Collections, key)
		}
	}
	for key, entry := range cache.Stats {
		if now.Sub(entry.CachedAt) > config.CollectionStatsTTL {
			delete(cache.Stats, key)
		}
	}
}

// GetTenantStats returns hit/miss counters and entry counts for a tenant.
func (ss *StructureStore) GetTenantStats(tenantID string) interfaces.CacheStats {
	cache, exists := ss.GetTenantCache(tenantID)
	if !exists {
		return interfaces.CacheStats{}
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	size := int64(len(cache.Collections) + len(cache.Stats))
	if cache.FirstCollection != nil {
		size++
	}
	return interfaces.CacheStats{Hits: cache.Hits, Misses: cache.Misses, Size: size}
}
