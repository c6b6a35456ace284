// Package interfaces defines cache operation contracts for the multi-tenant
// content structure core.
package interfaces

import (
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

// StructureCache defines the tiered read-through caches for hot structure
// lookups plus targeted and cascading invalidation. Identifier keys may be a
// path, a node id, or a collection's own id; resolution happens in the
// service layer, the cache only stores what it is given.
type StructureCache interface {
	GetFirstCollection(tenantID string) (*content.ContentNode, bool)
	SetFirstCollection(tenantID string, node *content.ContentNode)
	InvalidateFirstCollection(tenantID string)

	GetCollection(tenantID, identifier string) (*content.ContentNode, bool)
	SetCollection(tenantID, identifier string, node *content.ContentNode)

	GetCollectionStats(tenantID, collectionID string) (*content.CollectionStats, bool)
	SetCollectionStats(tenantID, collectionID string, stats *content.CollectionStats)

	RegisterDependency(tenantID, nodeID, dependentID string)
	InvalidateSpecificCaches(tenantID string, identifiers []string)
	InvalidateWithDependents(tenantID, nodeID string)
	InvalidateTenant(tenantID string)

	PurgeExpired(tenantID string)
	GetTenantStats(tenantID string) CacheStats
}

// CacheStats exposes hit/miss counters and entry counts for one tenant.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int64 `json:"size"`
}

// CacheTTL wraps the tier TTLs for reporting.
type CacheTTL time.Duration

const (
	TTLNever    CacheTTL = CacheTTL(0)
	TTL20Sec    CacheTTL = CacheTTL(20 * time.Second)
	TTL1Minute  CacheTTL = CacheTTL(time.Minute)
	TTL5Minutes CacheTTL = CacheTTL(5 * time.Minute)
)
