// Package repositories defines the port interfaces the content-structure core
// consumes. They abstract the persistence and cache details, ensuring the core
// application is clean and decoupled from any concrete backend.
package repositories

import (
	"context"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

// StructureMode selects the shape of a structure read.
type StructureMode string

const (
	ModeFlat   StructureMode = "flat"
	ModeNested StructureMode = "nested"
)

// StructureFilter narrows a structure read.
type StructureFilter struct {
	TenantID   string
	NodeType   content.NodeType
	PathPrefix string
}

// NodeUpdate is one entry of a bulk update batch, keyed by path.
type NodeUpdate struct {
	Path    string
	Changes map[string]any
}

// ReorderItem assigns a new sort order to the node at Path.
type ReorderItem struct {
	Path  string `json:"path"`
	Order int    `json:"order"`
}

// BulkResult reports per-item outcomes where the backend supports them.
type BulkResult struct {
	Succeeded int
	Failed    []BulkFailure
}

// BulkFailure identifies one failed item within a bulk batch.
type BulkFailure struct {
	Path string
	Err  error
}

// StructureRepository is the storage port. Upserts are keyed by path: path is
// the unique index on the storage side, while node ids remain the CMS-side
// identity. Implementations may cache structure reads internally;
// bypassCache skips that layer.
type StructureRepository interface {
	GetStructure(ctx context.Context, mode StructureMode, filter *StructureFilter, bypassCache bool) ([]*content.ContentNode, error)
	CreateMany(ctx context.Context, tenantID string, nodes []*content.ContentNode) error
	BulkUpdate(ctx context.Context, tenantID string, updates []NodeUpdate) (*BulkResult, error)
	Delete(ctx context.Context, tenantID, path string) error
	ReorderStructure(ctx context.Context, tenantID string, items []ReorderItem) error
	InvalidateCategory(ctx context.Context, tenantID string) error
}

// IDRepairer is an optional storage capability. Upsert-by-path cannot
// atomically change a primary identifier, so backends that can rewrite a
// document under a corrected id expose this; callers invoke it defensively
// and ignore backends that lack it.
type IDRepairer interface {
	FixMismatchedNodeIDs(ctx context.Context, tenantID string, nodes []*content.ContentNode) error
}

// DistributedCache is the warm-start port. A freshly started process instance
// reads the persisted snapshot of in-memory state instead of running a full
// reconciliation pass.
type DistributedCache interface {
	Initialize(ctx context.Context) error
	Get(ctx context.Context, key, tenantID string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tenantID string) error
}

// Keys the structure core uses on the distributed cache.
const (
	CacheKeyContentStructure = "cms:content_structure"
	CacheKeyFirstCollection  = "cms:first_collection"
	CacheKeyNavigation       = "cms:navigation_structure"
)

// SchemaSource recovers the set of compiled collection schemas. Scanning and
// compilation of schema source files happens outside this core.
type SchemaSource interface {
	LoadSchemas(ctx context.Context, tenantID string) ([]*content.CollectionSchema, error)
}
