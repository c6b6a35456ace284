// Package types defines the per-tenant cache structures for the content
// structure core. Staleness is time-based only: every entry carries the
// wall-clock instant it was cached and each tier applies its own TTL.
package types

import (
	"sync"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

// FirstCollectionEntry memoizes the first collection for a tenant.
type FirstCollectionEntry struct {
	Node     *content.ContentNode
	CachedAt time.Time
}

// CollectionEntry caches one resolved collection lookup. The key it is stored
// under may be a path, a node id, or the collection's own id.
type CollectionEntry struct {
	Node     *content.ContentNode
	CachedAt time.Time
}

// StatsEntry caches the narrow per-collection projection.
type StatsEntry struct {
	Stats    *content.CollectionStats
	CachedAt time.Time
}

// TenantStructureCache holds all cache tiers for one tenant. Dependents is
// the adjacency set behind cascade invalidation: node id -> ids of the
// collections registered as depending on it.
type TenantStructureCache struct {
	Mu sync.RWMutex

	FirstCollection *FirstCollectionEntry
	Collections     map[string]*CollectionEntry
	Stats           map[string]*StatsEntry
	Dependents      map[string]map[string]bool

	Hits        int64
	Misses      int64
	LastUpdated time.Time
}

// NewTenantStructureCache creates an empty tenant cache.
func NewTenantStructureCache() *TenantStructureCache {
	return &TenantStructureCache{
		Collections: make(map[string]*CollectionEntry),
		Stats:       make(map[string]*StatsEntry),
		Dependents:  make(map[string]map[string]bool),
		LastUpdated: time.Now().UTC(),
	}
}
