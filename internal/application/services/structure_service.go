package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	domainservices "github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/caching/interfaces"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/performance"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// InitStatus is one tenant's initialization state.
type InitStatus string

const (
	StatusUninitialized InitStatus = "uninitialized"
	StatusInitializing  InitStatus = "initializing"
	StatusInitialized   InitStatus = "initialized"
	StatusError         InitStatus = "error"
)

// VersionPublisher notifies connected clients that a tenant's structure
// version changed. Publish failures are the publisher's problem, never the
// mutation's.
type VersionPublisher interface {
	PublishVersion(tenantID string, version int64)
}

// StructureService is the content-structure core: it owns per-tenant
// in-memory stores, coordinates single-flight initialization with retry,
// serves reads through the tiered caches, and funnels every mutation through
// a per-tenant write lock so the two indexes never diverge.
type StructureService struct {
	repo      repositories.StructureRepository // nil means setup mode
	distCache repositories.DistributedCache    // optional warm-start store
	schemas   repositories.SchemaSource
	cache     interfaces.StructureCache
	logger    *logging.ChanneledLogger
	tracker   *performance.Tracker
	publisher VersionPublisher // optional

	reconciler *Reconciler
	flight     singleflight.Group

	mu     sync.RWMutex
	states map[string]*tenantState
}

type tenantState struct {
	store   *StructureStore
	writeMu sync.Mutex

	statusMu sync.RWMutex
	status   InitStatus
	lastErr  error
	readyAt  time.Time
}

func (ts *tenantState) getStatus() (InitStatus, error) {
	ts.statusMu.RLock()
	defer ts.statusMu.RUnlock()
	return ts.status, ts.lastErr
}

func (ts *tenantState) setStatus(status InitStatus, err error) {
	ts.statusMu.Lock()
	defer ts.statusMu.Unlock()
	ts.status = status
	ts.lastErr = err
	if status == StatusInitialized {
		ts.readyAt = time.Now()
	}
}

// NewStructureService wires the core with its ports. repo, distCache, and
// publisher may each be nil.
func NewStructureService(
	repo repositories.StructureRepository,
	distCache repositories.DistributedCache,
	schemas repositories.SchemaSource,
	cache interfaces.StructureCache,
	logger *logging.ChanneledLogger,
	tracker *performance.Tracker,
	publisher VersionPublisher,
) *StructureService {
	return &StructureService{
		repo:       repo,
		distCache:  distCache,
		schemas:    schemas,
		cache:      cache,
		logger:     logger,
		tracker:    tracker,
		publisher:  publisher,
		reconciler: NewReconciler(repo, logger),
		states:     make(map[string]*tenantState),
	}
}

func (s *StructureService) state(tenantID string) *tenantState {
	tenantID = tenant.ResolveTenantID(tenantID)

	s.mu.RLock()
	ts, ok := s.states[tenantID]
	s.mu.RUnlock()
	if ok {
		return ts
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.states[tenantID]; ok {
		return ts
	}
	ts = &tenantState{store: NewStructureStore(), status: StatusUninitialized}
	s.states[tenantID] = ts
	return ts
}

// Initialize brings a tenant's structure to the initialized state. Idempotent:
// already-initialized tenants return immediately, concurrent callers share one
// in-flight attempt, and a tenant in the error state stays terminal until
// Refresh.
func (s *StructureService) Initialize(ctx context.Context, tenantID string) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)

	switch status, lastErr := ts.getStatus(); status {
	case StatusInitialized:
		return nil
	case StatusError:
		return fmt.Errorf("%w: %v", ErrInitFailed, lastErr)
	}

	_, err, _ := s.flight.Do("init:"+tenantID, func() (any, error) {
		// Re-check inside the flight: a waiter queued behind the winning
		// caller must not start a second attempt.
		switch status, lastErr := ts.getStatus(); status {
		case StatusInitialized:
			return nil, nil
		case StatusError:
			return nil, fmt.Errorf("%w: %v", ErrInitFailed, lastErr)
		}
		return nil, s.runInitialization(ctx, tenantID, ts, true)
	})
	return err
}

// Refresh discards the tenant's state, including a terminal error, and runs a
// full reload. Warm-start is skipped: a refresh exists to pick up changes the
// cached snapshot predates.
func (s *StructureService) Refresh(ctx context.Context, tenantID string) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)

	_, err, _ := s.flight.Do("init:"+tenantID, func() (any, error) {
		ts.setStatus(StatusUninitialized, nil)
		s.cache.InvalidateTenant(tenantID)
		return nil, s.runInitialization(ctx, tenantID, ts, false)
	})
	return err
}

func (s *StructureService) runInitialization(ctx context.Context, tenantID string, ts *tenantState, allowWarmStart bool) error {
	// The attempt is shared by every waiter on the flight; a caller
	// abandoning its request must not cancel it for the others.
	ctx = context.WithoutCancel(ctx)

	marker := s.tracker.StartOperation("structure_initialize", tenantID)
	ts.setStatus(StatusInitializing, nil)
	s.logger.Startup().Info("Structure initialization started", "tenantId", tenantID)

	if allowWarmStart && s.warmStart(ctx, tenantID, ts) {
		ts.setStatus(StatusInitialized, nil)
		marker.AddMetadata("warmStart", true)
		marker.Complete()
		s.logger.Startup().Info("Structure warm-started from distributed cache",
			"tenantId", tenantID, "nodes", ts.store.Len())
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = config.InitBackoffInitial
	policy.MaxInterval = config.InitBackoffMax
	policy.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := s.fullReload(ctx, tenantID, ts); err != nil {
			s.logger.Startup().Warn("Structure reload attempt failed",
				"tenantId", tenantID, "attempt", attempt, "error", err.Error())
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(config.InitMaxAttempts-1)), ctx))

	if err != nil {
		ts.setStatus(StatusError, err)
		marker.SetError(err)
		marker.Complete()
		s.logger.Startup().Error("Structure initialization exhausted retries",
			"tenantId", tenantID, "attempts", attempt, "error", err.Error())
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	ts.setStatus(StatusInitialized, nil)
	marker.Complete()
	s.logger.Startup().Info("Structure initialization completed",
		"tenantId", tenantID, "nodes", ts.store.Len(), "attempts", attempt)
	return nil
}

// warmStart tries to rebuild the store from the distributed cache snapshot.
// Any failure is a miss, never an error.
func (s *StructureService) warmStart(ctx context.Context, tenantID string, ts *tenantState) bool {
	if s.distCache == nil {
		return false
	}

	data, found, err := s.distCache.Get(ctx, repositories.CacheKeyContentStructure, tenantID)
	if err != nil {
		s.logger.Cache().Warn("Distributed cache read failed", "tenantId", tenantID, "error", err.Error())
		return false
	}
	if !found || len(data) == 0 {
		return false
	}

	var nodes []*content.ContentNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		s.logger.Cache().Warn("Distributed cache snapshot unparseable", "tenantId", tenantID, "error", err.Error())
		return false
	}
	if len(nodes) == 0 {
		return false
	}

	ts.store.Replace(nodes)
	return true
}

func (s *StructureService) fullReload(ctx context.Context, tenantID string, ts *tenantState) error {
	schemas, err := s.schemas.LoadSchemas(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	var nodes []*content.ContentNode
	if s.repo == nil {
		// Setup mode: no storage backend, the derivation runs purely in
		// memory and the tenant still reaches initialized.
		nodes = s.reconciler.BuildInMemory(tenantID, schemas)
	} else {
		storageCtx, cancel := context.WithTimeout(ctx, config.StorageCallTimeout)
		defer cancel()
		nodes, err = s.reconciler.Reconcile(storageCtx, tenantID, schemas)
		if err != nil {
			return err
		}
	}

	ts.store.Replace(nodes)
	s.populateCaches(ctx, tenantID, ts)
	return nil
}

// populateCaches refreshes the read-through tiers and the distributed
// snapshot after a rebuild. Failures are logged and swallowed.
func (s *StructureService) populateCaches(ctx context.Context, tenantID string, ts *tenantState) {
	nodes := ts.store.Nodes()

	if first := firstCollection(nodes); first != nil {
		s.cache.SetFirstCollection(tenantID, first)
	} else {
		s.cache.InvalidateFirstCollection(tenantID)
	}

	if s.distCache == nil {
		return
	}

	if data, err := json.Marshal(nodes); err == nil {
		if err := s.distCache.Set(ctx, repositories.CacheKeyContentStructure, data, config.StructureCacheTTL, tenantID); err != nil {
			s.logger.Cache().Warn("Distributed structure snapshot write failed", "tenantId", tenantID, "error", err.Error())
		}
	}
	if nav := domainservices.BuildNavigation(nodes, 2, nil); nav != nil {
		if data, err := json.Marshal(nav); err == nil {
			if err := s.distCache.Set(ctx, repositories.CacheKeyNavigation, data, config.StructureCacheTTL, tenantID); err != nil {
				s.logger.Cache().Warn("Distributed navigation snapshot write failed", "tenantId", tenantID, "error", err.Error())
			}
		}
	}
	if first := firstCollection(nodes); first != nil {
		if data, err := json.Marshal(first); err == nil {
			if err := s.distCache.Set(ctx, repositories.CacheKeyFirstCollection, data, config.FirstCollectionTTL, tenantID); err != nil {
				s.logger.Cache().Warn("Distributed first-collection write failed", "tenantId", tenantID, "error", err.Error())
			}
		}
	}
}

func firstCollection(nodes []*content.ContentNode) *content.ContentNode {
	var first *content.ContentNode
	for _, n := range nodes {
		if !n.IsCollection() {
			continue
		}
		if first == nil || n.Path < first.Path {
			first = n
		}
	}
	return first
}

// ensureInitialized auto-initializes the handful of read paths documented to
// do so; everything else fails fast with ErrNotInitialized.
func (s *StructureService) ensureInitialized(ctx context.Context, tenantID string, autoInit bool) (*tenantState, error) {
	ts := s.state(tenantID)
	status, lastErr := ts.getStatus()

	switch status {
	case StatusInitialized:
		return ts, nil
	case StatusError:
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, lastErr)
	}

	if !autoInit {
		return nil, ErrNotInitialized
	}
	if err := s.Initialize(ctx, tenantID); err != nil {
		return nil, err
	}
	return ts, nil
}

// Status reports a tenant's initialization state.
func (s *StructureService) Status(tenantID string) InitStatus {
	status, _ := s.state(tenantID).getStatus()
	return status
}

// Version returns the tenant's current structure version.
func (s *StructureService) Version(tenantID string) int64 {
	return s.state(tenantID).store.Version()
}

// GetCollections returns all collection nodes sorted by path. Auto-initializes.
func (s *StructureService) GetCollections(ctx context.Context, tenantID string) ([]*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	nodes := ts.store.Nodes()
	collections := make([]*content.ContentNode, 0, len(nodes))
	for _, n := range nodes {
		if n.IsCollection() {
			collections = append(collections, n)
		}
	}
	return collections, nil
}

// GetFirstCollection returns the path-first collection node, memoized with a
// 60s TTL. forceRefresh bypasses the cache.
func (s *StructureService) GetFirstCollection(ctx context.Context, tenantID string, forceRefresh bool) (*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	if !forceRefresh {
		if node, ok := s.cache.GetFirstCollection(tenantID); ok {
			return node, nil
		}
	}

	first := firstCollection(ts.store.Nodes())
	if first == nil {
		return nil, fmt.Errorf("%w: no collections defined", ErrNotFound)
	}
	s.cache.SetFirstCollection(tenantID, first)
	return first, nil
}

// GetCollection resolves a collection by identifier, which may be a path, a
// node id, or the collection schema's own id. Resolution order: path index,
// direct id, then a linear scan over collection definitions. Hits and misses
// feed the tenant cache counters.
func (s *StructureService) GetCollection(ctx context.Context, identifier, tenantID string, forceRefresh bool) (*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	marker := s.tracker.StartOperation("get_collection", tenantID)
	defer marker.Complete()

	if !forceRefresh {
		if node, ok := s.cache.GetCollection(tenantID, identifier); ok {
			marker.AddCacheHit()
			return node, nil
		}
		marker.AddCacheMiss()
	}

	node := s.resolveCollection(ts, identifier)
	if node == nil {
		err := fmt.Errorf("%w: collection %q", ErrNotFound, identifier)
		marker.SetError(err)
		return nil, err
	}

	s.cache.SetCollection(tenantID, identifier, node)
	if node.Collection != nil {
		s.cache.SetCollectionStats(tenantID, node.Collection.ID, &content.CollectionStats{
			ID:         node.Collection.ID,
			Name:       node.Name,
			Icon:       node.Icon,
			Status:     node.Collection.Status,
			FieldCount: len(node.Collection.Fields),
		})
	}
	return node, nil
}

func (s *StructureService) resolveCollection(ts *tenantState, identifier string) *content.ContentNode {
	if node, ok := ts.store.GetByPath(identifier); ok && node.IsCollection() {
		return node
	}
	if node, ok := ts.store.Get(identifier); ok && node.IsCollection() {
		return node
	}
	want := domainservices.NormalizeID(identifier)
	for _, n := range ts.store.Nodes() {
		if n.Collection != nil && domainservices.NormalizeID(n.Collection.ID) == want {
			return n
		}
	}
	return nil
}

// GetCollectionStats returns the narrow projection for list headers, cached
// separately from full schema fetches.
func (s *StructureService) GetCollectionStats(ctx context.Context, collectionID, tenantID string) (*content.CollectionStats, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	if stats, ok := s.cache.GetCollectionStats(tenantID, collectionID); ok {
		return stats, nil
	}

	node, err := s.GetCollection(ctx, collectionID, tenantID, false)
	if err != nil {
		return nil, err
	}
	stats := &content.CollectionStats{ID: collectionID, Name: node.Name, Icon: node.Icon}
	if node.Collection != nil {
		stats.ID = node.Collection.ID
		stats.Status = node.Collection.Status
		stats.FieldCount = len(node.Collection.Fields)
	}
	s.cache.SetCollectionStats(tenantID, stats.ID, stats)
	return stats, nil
}

// GetContentStructure returns the full nested tree. During an active
// initialization it returns an empty slice rather than blocking, keeping the
// UI responsive.
func (s *StructureService) GetContentStructure(ctx context.Context, tenantID string) ([]*content.TreeNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)

	switch status, lastErr := ts.getStatus(); status {
	case StatusInitializing:
		return []*content.TreeNode{}, nil
	case StatusError:
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, lastErr)
	case StatusUninitialized:
		return nil, ErrNotInitialized
	}

	return domainservices.BuildTree(ts.store.Nodes()), nil
}

// GetNavigationStructure returns the navigation view fully expanded.
func (s *StructureService) GetNavigationStructure(ctx context.Context, tenantID string) ([]*content.NavNode, error) {
	return s.GetNavigationStructureProgressive(ctx, tenantID, int(^uint(0)>>1), nil)
}

// GetNavigationStructureProgressive returns the depth-limited navigation
// view, descending past maxDepth only for ids listed in expandedIDs. Empty
// during an active initialization.
func (s *StructureService) GetNavigationStructureProgressive(ctx context.Context, tenantID string, maxDepth int, expandedIDs []string) ([]*content.NavNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)

	switch status, lastErr := ts.getStatus(); status {
	case StatusInitializing:
		return []*content.NavNode{}, nil
	case StatusError:
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, lastErr)
	case StatusUninitialized:
		return nil, ErrNotInitialized
	}

	expanded := make(map[string]bool, len(expandedIDs))
	for _, id := range expandedIDs {
		expanded[id] = true
	}
	return domainservices.BuildNavigation(ts.store.Nodes(), maxDepth, expanded), nil
}

// GetNodeChildren returns the direct children of a node, sorted by order.
func (s *StructureService) GetNodeChildren(ctx context.Context, tenantID, nodeID string) ([]*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}

	parent, ok := ts.store.Get(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q", ErrNotFound, nodeID)
	}

	var children []*content.ContentNode
	for _, n := range ts.store.Nodes() {
		if n.ParentID != nil && *n.ParentID == parent.ID {
			children = append(children, n)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		return domainservices.SortOrder(children[i]) < domainservices.SortOrder(children[j])
	})
	return children, nil
}

// GetDescendants returns every node below the given one, path-sorted.
func (s *StructureService) GetDescendants(ctx context.Context, tenantID, nodeID string) ([]*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}

	if _, ok := ts.store.Get(nodeID); !ok {
		return nil, fmt.Errorf("%w: node %q", ErrNotFound, nodeID)
	}

	byID, _ := ts.store.IndexCopies()
	var out []*content.ContentNode
	for _, n := range ts.store.Nodes() {
		if domainservices.IsDescendant(byID, nodeID, n.ID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetNodePath resolves a node id to its path.
func (s *StructureService) GetNodePath(ctx context.Context, tenantID, nodeID string) (string, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return "", err
	}
	node, ok := ts.store.Get(nodeID)
	if !ok {
		return "", fmt.Errorf("%w: node %q", ErrNotFound, nodeID)
	}
	return node.Path, nil
}

// GetBreadcrumb returns the root-first ancestor chain for a path.
func (s *StructureService) GetBreadcrumb(ctx context.Context, tenantID, path string) ([]*content.ContentNode, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	byID, byPath := ts.store.IndexCopies()
	index := make(map[string]*content.ContentNode, len(byPath))
	for p, id := range byPath {
		if n, ok := byID[id]; ok {
			index[p] = n
		}
	}
	return domainservices.Breadcrumb(index, path), nil
}

// UpsertContentNodes persists and applies a batch of node upserts. The
// persisted copy drops each collection's field list; both in-memory indexes
// are patched in the same step and affected cache keys are invalidated with
// their registered dependents.
func (s *StructureService) UpsertContentNodes(ctx context.Context, tenantID string, nodes []*content.ContentNode) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	now := time.Now().UTC()
	for _, n := range nodes {
		n.Path = domainservices.CleanPath(n.Path)
		n.TenantID = tenantID
		n.Changed = now
		if n.Created.IsZero() {
			n.Created = now
		}
		if n.ID == "" {
			if n.Collection != nil {
				n.ID = n.Collection.ID
			} else {
				n.ID = ulid.Make().String()
			}
		}
	}

	if s.repo != nil {
		stripped := make([]*content.ContentNode, len(nodes))
		for i, n := range nodes {
			dup := n.Clone()
			if dup.Collection != nil {
				dup.Collection = dup.Collection.Stripped()
			}
			stripped[i] = dup
		}
		storageCtx, cancel := context.WithTimeout(ctx, config.StorageCallTimeout)
		defer cancel()
		if err := s.repo.CreateMany(storageCtx, tenantID, stripped); err != nil {
			return fmt.Errorf("failed to persist node batch: %w", err)
		}
	}

	// The index owns its copies; callers keep theirs.
	owned := make([]*content.ContentNode, len(nodes))
	for i, n := range nodes {
		owned[i] = n.Clone()
	}
	ts.store.Upsert(owned)
	s.invalidateForNodes(ctx, tenantID, ts, owned)
	s.publishVersion(tenantID, ts)
	return nil
}

// DeleteContentNode removes a node by path from storage and both indexes.
func (s *StructureService) DeleteContentNode(ctx context.Context, tenantID, path string) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return err
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	path = domainservices.CleanPath(path)
	node, ok := ts.store.GetByPath(path)
	if !ok {
		return fmt.Errorf("%w: path %q", ErrNotFound, path)
	}

	if s.repo != nil {
		storageCtx, cancel := context.WithTimeout(ctx, config.StorageCallTimeout)
		defer cancel()
		if err := s.repo.Delete(storageCtx, tenantID, path); err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
	}

	ts.store.Remove(path)
	s.invalidateForNodes(ctx, tenantID, ts, []*content.ContentNode{node})
	s.publishVersion(tenantID, ts)
	return nil
}

// ReorderContentNodes assigns new sibling orders in one batch.
func (s *StructureService) ReorderContentNodes(ctx context.Context, tenantID string, items []repositories.ReorderItem) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	if s.repo != nil {
		storageCtx, cancel := context.WithTimeout(ctx, config.StorageCallTimeout)
		defer cancel()
		if err := s.repo.ReorderStructure(storageCtx, tenantID, items); err != nil {
			return fmt.Errorf("failed to persist reorder: %w", err)
		}
	}

	var touched []*content.ContentNode
	for _, item := range items {
		node, ok := ts.store.GetByPath(item.Path)
		if !ok {
			continue
		}
		updated := node.Clone()
		order := item.Order
		updated.Order = &order
		updated.Changed = time.Now().UTC()
		touched = append(touched, updated)
	}
	if len(touched) > 0 {
		ts.store.Upsert(touched)
	}

	s.invalidateForNodes(ctx, tenantID, ts, touched)
	s.publishVersion(tenantID, ts)
	return nil
}

// MoveNodeWithDescendants reparents a node and rewrites the paths of its
// entire subtree. A move that would make the node its own ancestor fails
// with ErrCycleDetected and leaves both indexes untouched.
func (s *StructureService) MoveNodeWithDescendants(ctx context.Context, tenantID, nodeID, newParentID string) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return err
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	node, ok := ts.store.Get(nodeID)
	if !ok {
		return fmt.Errorf("%w: node %q", ErrNotFound, nodeID)
	}

	var newParent *content.ContentNode
	if newParentID != "" {
		newParent, ok = ts.store.Get(newParentID)
		if !ok {
			return fmt.Errorf("%w: parent %q", ErrNotFound, newParentID)
		}

		byID, _ := ts.store.IndexCopies()
		if newParent.ID == node.ID || domainservices.IsDescendant(byID, node.ID, newParent.ID) {
			return fmt.Errorf("%w: %q is a descendant of %q", ErrCycleDetected, newParentID, nodeID)
		}
	}

	newBase := "/" + domainservices.PathSegment(node.Path)
	if newParent != nil {
		newBase = newParent.Path + "/" + domainservices.PathSegment(node.Path)
	}
	if _, exists := ts.store.GetByPath(newBase); exists && newBase != node.Path {
		return fmt.Errorf("%w: a node already exists at %q", ErrStructureInvalid, newBase)
	}

	byID, _ := ts.store.IndexCopies()
	oldBase := node.Path

	moved := node.Clone()
	moved.Path = newBase
	if newParent != nil {
		parentID := newParent.ID
		moved.ParentID = &parentID
	} else {
		moved.ParentID = nil
	}
	moved.Changed = time.Now().UTC()

	updates := []*content.ContentNode{moved}
	oldPaths := []string{oldBase}
	for _, n := range ts.store.Nodes() {
		if n.ID == node.ID || !domainservices.IsDescendant(byID, node.ID, n.ID) {
			continue
		}
		dup := n.Clone()
		dup.Path = newBase + n.Path[len(oldBase):]
		dup.Changed = moved.Changed
		updates = append(updates, dup)
		oldPaths = append(oldPaths, n.Path)
	}

	if s.repo != nil {
		storageCtx, cancel := context.WithTimeout(ctx, config.StorageCallTimeout)
		defer cancel()

		// Path is the storage-side primary key, so a move is persisted as
		// delete-old-paths plus recreate-under-new-paths.
		for _, p := range oldPaths {
			if err := s.repo.Delete(storageCtx, tenantID, p); err != nil {
				return fmt.Errorf("failed to remove old path %s: %w", p, err)
			}
		}
		stripped := make([]*content.ContentNode, len(updates))
		for i, n := range updates {
			dup := n.Clone()
			if dup.Collection != nil {
				dup.Collection = dup.Collection.Stripped()
			}
			stripped[i] = dup
		}
		if err := s.repo.CreateMany(storageCtx, tenantID, stripped); err != nil {
			return fmt.Errorf("failed to persist moved subtree: %w", err)
		}
	}

	ts.store.Upsert(updates)
	s.invalidateForNodes(ctx, tenantID, ts, updates)
	s.publishVersion(tenantID, ts)
	return nil
}

// CreateSnapshot deep-copies the current indexes into the bounded ring and
// returns the snapshot id.
func (s *StructureService) CreateSnapshot(ctx context.Context, tenantID, snapshotID string) (string, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return "", err
	}
	if snapshotID == "" {
		snapshotID = ulid.Make().String()
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	snap := ts.store.CreateSnapshot(snapshotID)
	s.logger.Structure().Info("Snapshot created", "tenantId", tenantID,
		"snapshotId", snap.ID, "nodes", len(snap.Nodes))
	return snap.ID, nil
}

// RollbackToSnapshot replaces both live indexes with the snapshot's copies,
// clears all derived caches, and bumps the version. Memory-only: storage is
// not reverted.
func (s *StructureService) RollbackToSnapshot(ctx context.Context, tenantID, snapshotID string) error {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return err
	}

	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()

	if !ts.store.RollbackToSnapshot(snapshotID) {
		return fmt.Errorf("%w: snapshot %q", ErrNotFound, snapshotID)
	}

	s.cache.InvalidateTenant(tenantID)
	s.populateCaches(ctx, tenantID, ts)
	s.publishVersion(tenantID, ts)
	s.logger.Structure().Info("Rolled back to snapshot", "tenantId", tenantID, "snapshotId", snapshotID)
	return nil
}

// ListSnapshots returns the retained snapshot ids, oldest first.
func (s *StructureService) ListSnapshots(tenantID string) []string {
	return s.state(tenantID).store.SnapshotIDs()
}

// RegisterCacheDependency records that dependentID's cache entries must be
// cleared whenever nodeID is invalidated.
func (s *StructureService) RegisterCacheDependency(tenantID, nodeID, dependentID string) {
	s.cache.RegisterDependency(tenant.ResolveTenantID(tenantID), nodeID, dependentID)
}

// InvalidateCaches removes exactly the cache keys derived from the given
// identifiers and bumps the version so pollers notice.
func (s *StructureService) InvalidateCaches(tenantID string, identifiers []string) {
	tenantID = tenant.ResolveTenantID(tenantID)
	s.cache.InvalidateSpecificCaches(tenantID, identifiers)
	ts := s.state(tenantID)
	ts.store.Touch()
	s.publishVersion(tenantID, ts)
}

func (s *StructureService) invalidateForNodes(ctx context.Context, tenantID string, ts *tenantState, nodes []*content.ContentNode) {
	identifiers := make([]string, 0, len(nodes)*2)
	for _, n := range nodes {
		identifiers = append(identifiers, n.ID, n.Path)
		s.cache.InvalidateWithDependents(tenantID, n.ID)
	}
	s.cache.InvalidateSpecificCaches(tenantID, identifiers)
	s.cache.InvalidateFirstCollection(tenantID)
	s.populateCaches(ctx, tenantID, ts)
}

func (s *StructureService) publishVersion(tenantID string, ts *tenantState) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishVersion(tenantID, ts.store.Version())
}

// ValidateStructure reports invariant violations without repairing them.
func (s *StructureService) ValidateStructure(ctx context.Context, tenantID string) ([]domainservices.StructureIssue, error) {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts, err := s.ensureInitialized(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	return ts.store.Validate(), nil
}

// HealthStatus is the summarized state exposed on the health endpoint.
type HealthStatus struct {
	TenantID  string     `json:"tenantId"`
	Status    InitStatus `json:"status"`
	Nodes     int        `json:"nodes"`
	Version   int64      `json:"version"`
	ReadyAt   *time.Time `json:"readyAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// GetHealthStatus reports one tenant's structure health.
func (s *StructureService) GetHealthStatus(tenantID string) HealthStatus {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)
	status, lastErr := ts.getStatus()

	health := HealthStatus{
		TenantID: tenantID,
		Status:   status,
		Nodes:    ts.store.Len(),
		Version:  ts.store.Version(),
	}
	ts.statusMu.RLock()
	if !ts.readyAt.IsZero() {
		readyAt := ts.readyAt
		health.ReadyAt = &readyAt
	}
	ts.statusMu.RUnlock()
	if lastErr != nil {
		health.LastError = lastErr.Error()
	}
	return health
}

// Diagnostics bundles the deep inspection payload for the admin surface.
type Diagnostics struct {
	Health    HealthStatus                    `json:"health"`
	Cache     interfaces.CacheStats           `json:"cache"`
	Snapshots []string                        `json:"snapshots"`
	Issues    []domainservices.StructureIssue `json:"issues,omitempty"`
	Active    []performance.Marker            `json:"activeOperations,omitempty"`
}

// GetDiagnostics returns health, cache counters, retained snapshots, and any
// detected invariant violations for one tenant.
func (s *StructureService) GetDiagnostics(tenantID string) Diagnostics {
	tenantID = tenant.ResolveTenantID(tenantID)
	ts := s.state(tenantID)
	return Diagnostics{
		Health:    s.GetHealthStatus(tenantID),
		Cache:     s.cache.GetTenantStats(tenantID),
		Snapshots: ts.store.SnapshotIDs(),
		Issues:    ts.store.Validate(),
		Active:    s.tracker.GetActiveOperations(tenantID),
	}
}

// GetMetrics returns the completed operation markers for one tenant.
func (s *StructureService) GetMetrics(tenantID string) []performance.Marker {
	return s.tracker.GetMetrics(tenant.ResolveTenantID(tenantID))
}

// ActiveTenantIDs lists tenants with a structure state in this process.
func (s *StructureService) ActiveTenantIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
