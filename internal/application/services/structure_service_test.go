package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

const tn = "default"

func initializedService(t *testing.T, schemas ...*content.CollectionSchema) (*StructureService, *fakeRepo, *fakePublisher) {
	t.Helper()
	repo := newFakeRepo()
	src := &fakeSchemaSource{schemas: schemas}
	pub := &fakePublisher{}
	svc, _ := newTestService(repo, src, pub, nil)
	require.NoError(t, svc.Initialize(context.Background(), tn))
	return svc, repo, pub
}

func TestInitialize_SingleFlight(t *testing.T) {
	repo := newFakeRepo()
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(repo, src, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Initialize(context.Background(), tn))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.callCount(), "concurrent callers share one attempt")
	assert.Equal(t, StatusInitialized, svc.Status(tn))
}

func TestInitialize_Idempotent(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	require.NoError(t, svc.Initialize(context.Background(), tn))
	require.NoError(t, svc.Initialize(context.Background(), tn))
	assert.Equal(t, StatusInitialized, svc.Status(tn))
}

func TestInitialize_RetriesTransientFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failReads = 1
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(repo, src, nil, nil)

	require.NoError(t, svc.Initialize(context.Background(), tn))
	assert.Equal(t, 2, src.callCount(), "one failed attempt plus the successful retry")
	assert.Equal(t, StatusInitialized, svc.Status(tn))
}

func TestInitialize_CallerCancellationDoesNotAbortSharedAttempt(t *testing.T) {
	repo := newFakeRepo()
	repo.failReads = 1
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(repo, src, nil, nil)

	// Cancel during the backoff sleep between the failed attempt and the
	// retry; the shared attempt must still run to completion.
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(time.Millisecond, cancel)

	require.NoError(t, svc.Initialize(ctx, tn))
	assert.Equal(t, StatusInitialized, svc.Status(tn))
	assert.Equal(t, 2, src.callCount(), "retry ran despite the cancellation")
	require.NoError(t, svc.Initialize(context.Background(), tn))
}

func TestInitialize_ErrorStateIsTerminalUntilRefresh(t *testing.T) {
	src := &fakeSchemaSource{err: errors.New("schema scan failed")}
	svc, _ := newTestService(newFakeRepo(), src, nil, nil)

	err := svc.Initialize(context.Background(), tn)
	require.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, config.InitMaxAttempts, src.callCount())
	assert.Equal(t, StatusError, svc.Status(tn))

	// Further calls fail fast without new attempts.
	err = svc.Initialize(context.Background(), tn)
	require.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, config.InitMaxAttempts, src.callCount())

	_, err = svc.GetContentStructure(context.Background(), tn)
	require.ErrorIs(t, err, ErrInitFailed)

	// Refresh clears the terminal state.
	src.setErr(nil)
	src.schemas = []*content.CollectionSchema{testSchema("c1", "/blog/posts")}
	require.NoError(t, svc.Refresh(context.Background(), tn))
	assert.Equal(t, StatusInitialized, svc.Status(tn))
}

func TestReadsDuringInitializationReturnEmpty(t *testing.T) {
	src := &fakeSchemaSource{
		schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")},
		block:   make(chan struct{}),
	}
	svc, _ := newTestService(newFakeRepo(), src, nil, nil)

	go func() { _ = svc.Initialize(context.Background(), tn) }()
	require.Eventually(t, func() bool {
		return svc.Status(tn) == StatusInitializing
	}, 2*time.Second, 5*time.Millisecond)

	tree, err := svc.GetContentStructure(context.Background(), tn)
	require.NoError(t, err)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)

	nav, err := svc.GetNavigationStructure(context.Background(), tn)
	require.NoError(t, err)
	assert.NotNil(t, nav)
	assert.Empty(t, nav)

	close(src.block)
	require.Eventually(t, func() bool {
		return svc.Status(tn) == StatusInitialized
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWarmStart_SkipsReconciliation(t *testing.T) {
	dist := newFakeDistCache()
	snapshot := []*content.ContentNode{{
		ID:       "c1",
		Path:     "/blog",
		NodeType: content.NodeTypeCollection,
		Name:     "blog",
		TenantID: tn,
	}}
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, dist.Set(context.Background(), repositories.CacheKeyContentStructure, data, 0, tn))

	repo := newFakeRepo()
	src := &fakeSchemaSource{}
	svc, _ := newTestService(repo, src, nil, dist)

	require.NoError(t, svc.Initialize(context.Background(), tn))
	assert.Equal(t, 0, src.callCount(), "warm start bypasses the schema scan")
	assert.Equal(t, 0, repo.readCount(), "warm start bypasses storage")

	cols, err := svc.GetCollections(context.Background(), tn)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "c1", cols[0].ID)
}

func TestRefresh_SkipsWarmStart(t *testing.T) {
	dist := newFakeDistCache()
	stale := []*content.ContentNode{{ID: "old", Path: "/old", NodeType: content.NodeTypeCollection, Name: "old"}}
	data, _ := json.Marshal(stale)
	_ = dist.Set(context.Background(), repositories.CacheKeyContentStructure, data, 0, tn)

	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(newFakeRepo(), src, nil, dist)

	require.NoError(t, svc.Refresh(context.Background(), tn))
	assert.Equal(t, 1, src.callCount(), "refresh always reloads from source")

	cols, err := svc.GetCollections(context.Background(), tn)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "c1", cols[0].ID)
}

func TestSetupMode_BuildsInMemory(t *testing.T) {
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(nil, src, nil, nil)

	require.NoError(t, svc.Initialize(context.Background(), tn))

	cols, err := svc.GetCollections(context.Background(), tn)
	require.NoError(t, err)
	require.Len(t, cols, 1)

	tree, err := svc.GetContentStructure(context.Background(), tn)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "/blog", tree[0].Path)
}

func TestGetCollections_AutoInitializes(t *testing.T) {
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(newFakeRepo(), src, nil, nil)

	cols, err := svc.GetCollections(context.Background(), tn)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, StatusInitialized, svc.Status(tn))
}

func TestGetNodeChildren_RequiresInitialization(t *testing.T) {
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(newFakeRepo(), src, nil, nil)

	_, err := svc.GetNodeChildren(context.Background(), tn, "c1")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestGetFirstCollection_PicksLowestPath(t *testing.T) {
	svc, _, _ := initializedService(t,
		testSchema("c1", "/zebra/posts"),
		testSchema("c2", "/alpha/first"),
	)

	first, err := svc.GetFirstCollection(context.Background(), tn, false)
	require.NoError(t, err)
	assert.Equal(t, "c2", first.ID)

	first, err = svc.GetFirstCollection(context.Background(), tn, true)
	require.NoError(t, err)
	assert.Equal(t, "c2", first.ID)
}

func TestGetCollection_ResolvesAllIdentifierForms(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("BlogPosts", "/blog/posts"))
	ctx := context.Background()

	byPath, err := svc.GetCollection(ctx, "/blog/posts", tn, false)
	require.NoError(t, err)
	assert.Equal(t, "BlogPosts", byPath.ID)

	byID, err := svc.GetCollection(ctx, "BlogPosts", tn, true)
	require.NoError(t, err)
	assert.Equal(t, byPath.ID, byID.ID)

	// Dash-bearing spelling reaches the same node via normalization.
	dashed, err := svc.GetCollection(ctx, "Blog-Posts", tn, true)
	require.NoError(t, err)
	assert.Equal(t, byPath.ID, dashed.ID)

	_, err = svc.GetCollection(ctx, "nope", tn, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCollectionStats(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	stats, err := svc.GetCollectionStats(context.Background(), "c1", tn)
	require.NoError(t, err)
	assert.Equal(t, "c1", stats.ID)
	assert.Equal(t, 2, stats.FieldCount)
	assert.Equal(t, "published", stats.Status)
}

func TestUpsertContentNodes(t *testing.T) {
	svc, repo, pub := initializedService(t, testSchema("c1", "/blog/posts"))
	versionBefore := svc.Version(tn)

	node := &content.ContentNode{
		Path:       "pages",
		NodeType:   content.NodeTypeCollection,
		Name:       "Pages",
		Collection: testSchema("pages", "/pages"),
	}
	require.NoError(t, svc.UpsertContentNodes(context.Background(), tn, []*content.ContentNode{node}))

	assert.Equal(t, "/pages", node.Path, "paths are cleaned before persisting")
	assert.Equal(t, "pages", node.ID, "missing id defaults to the schema id")

	stored := repo.stored("/pages")
	require.NotNil(t, stored)
	require.NotNil(t, stored.Collection)
	assert.Empty(t, stored.Collection.Fields, "persisted copy drops the field list")

	got, err := svc.GetCollection(context.Background(), "/pages", tn, true)
	require.NoError(t, err)
	require.NotNil(t, got.Collection)
	assert.NotEmpty(t, got.Collection.Fields, "in-memory copy keeps the full schema")

	assert.Greater(t, svc.Version(tn), versionBefore)
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, svc.Version(tn), pub.last())
}

func TestUpsertContentNodes_MintsIDForPlainNodes(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	node := &content.ContentNode{Path: "/misc", NodeType: content.NodeTypeCategory, Name: "misc"}
	require.NoError(t, svc.UpsertContentNodes(context.Background(), tn, []*content.ContentNode{node}))
	assert.Len(t, node.ID, 26, "ulid assigned")
}

func TestUpsertContentNodes_ReusedPathKeepsIndexesAligned(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))
	ctx := context.Background()

	// Two upserts on the same path mint distinct ids; the second must
	// displace the first instead of leaving it orphaned in the id index.
	first := &content.ContentNode{Path: "/misc", NodeType: content.NodeTypeCategory, Name: "misc"}
	require.NoError(t, svc.UpsertContentNodes(ctx, tn, []*content.ContentNode{first}))

	second := &content.ContentNode{Path: "/misc", NodeType: content.NodeTypeCategory, Name: "misc"}
	require.NoError(t, svc.UpsertContentNodes(ctx, tn, []*content.ContentNode{second}))

	issues, err := svc.ValidateStructure(ctx, tn)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, 3, svc.GetHealthStatus(tn).Nodes)
	_, err = svc.GetNodePath(ctx, tn, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	path, err := svc.GetNodePath(ctx, tn, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "/misc", path)
}

func TestUpsertContentNodes_StoreOwnsItsCopies(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))
	ctx := context.Background()

	node := &content.ContentNode{Path: "/misc", NodeType: content.NodeTypeCategory, Name: "misc"}
	require.NoError(t, svc.UpsertContentNodes(ctx, tn, []*content.ContentNode{node}))

	node.Name = "mutated"

	crumb, err := svc.GetBreadcrumb(ctx, tn, "/misc")
	require.NoError(t, err)
	require.Len(t, crumb, 1)
	assert.Equal(t, "misc", crumb[0].Name)
}

func TestDeleteContentNode(t *testing.T) {
	svc, repo, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	require.NoError(t, svc.DeleteContentNode(context.Background(), tn, "/blog/posts"))
	assert.Nil(t, repo.stored("/blog/posts"))

	_, err := svc.GetCollection(context.Background(), "/blog/posts", tn, true)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.DeleteContentNode(context.Background(), tn, "/blog/posts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReorderContentNodes(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	items := []repositories.ReorderItem{{Path: "/blog/posts", Order: 3}}
	require.NoError(t, svc.ReorderContentNodes(context.Background(), tn, items))

	col, err := svc.GetCollection(context.Background(), "c1", tn, true)
	require.NoError(t, err)
	require.NotNil(t, col.Order)
	assert.Equal(t, 3, *col.Order)
}

func TestMoveNodeWithDescendants_RewritesSubtreePaths(t *testing.T) {
	svc, repo, _ := initializedService(t,
		testSchema("c1", "/blog/posts"),
		testSchema("c2", "/docs/guides"),
	)
	ctx := context.Background()

	c1, err := svc.GetCollection(ctx, "c1", tn, false)
	require.NoError(t, err)
	blogID := *c1.ParentID
	c2, err := svc.GetCollection(ctx, "c2", tn, false)
	require.NoError(t, err)
	docsID := *c2.ParentID

	require.NoError(t, svc.MoveNodeWithDescendants(ctx, tn, blogID, docsID))

	path, err := svc.GetNodePath(ctx, tn, blogID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/blog", path)

	path, err = svc.GetNodePath(ctx, tn, "c1")
	require.NoError(t, err)
	assert.Equal(t, "/docs/blog/posts", path)

	assert.Nil(t, repo.stored("/blog/posts"), "old paths removed from storage")
	assert.NotNil(t, repo.stored("/docs/blog/posts"))

	issues, err := svc.ValidateStructure(ctx, tn)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestMoveNodeWithDescendants_RejectsCycle(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))
	ctx := context.Background()

	c1, err := svc.GetCollection(ctx, "c1", tn, false)
	require.NoError(t, err)
	blogID := *c1.ParentID
	versionBefore := svc.Version(tn)

	err = svc.MoveNodeWithDescendants(ctx, tn, blogID, "c1")
	require.ErrorIs(t, err, ErrCycleDetected)

	// Nothing changed.
	path, err := svc.GetNodePath(ctx, tn, blogID)
	require.NoError(t, err)
	assert.Equal(t, "/blog", path)
	assert.Equal(t, versionBefore, svc.Version(tn))
}

func TestMoveNodeWithDescendants_RejectsPathCollision(t *testing.T) {
	svc, _, _ := initializedService(t,
		testSchema("posts", "/blog/posts"),
		testSchema("posts2", "/posts"),
	)

	// Moving /blog/posts to the root would land on the existing /posts.
	err := svc.MoveNodeWithDescendants(context.Background(), tn, "posts", "")
	assert.ErrorIs(t, err, ErrStructureInvalid)
}

func TestSnapshotAndRollback(t *testing.T) {
	svc, _, pub := initializedService(t, testSchema("c1", "/blog/posts"))
	ctx := context.Background()

	snapID, err := svc.CreateSnapshot(ctx, tn, "")
	require.NoError(t, err)
	assert.Len(t, snapID, 26)
	assert.Equal(t, []string{snapID}, svc.ListSnapshots(tn))

	extra := &content.ContentNode{Path: "/extra", NodeType: content.NodeTypeCategory, Name: "extra"}
	require.NoError(t, svc.UpsertContentNodes(ctx, tn, []*content.ContentNode{extra}))

	versionBefore := svc.Version(tn)
	require.NoError(t, svc.RollbackToSnapshot(ctx, tn, snapID))

	_, err = svc.GetNodePath(ctx, tn, extra.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Greater(t, svc.Version(tn), versionBefore)
	assert.GreaterOrEqual(t, pub.count(), 2)

	err = svc.RollbackToSnapshot(ctx, tn, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotRing_ThroughService(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))
	ctx := context.Background()

	var ids []string
	for i := 0; i < config.SnapshotRingSize+2; i++ {
		id, err := svc.CreateSnapshot(ctx, tn, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	retained := svc.ListSnapshots(tn)
	require.Len(t, retained, config.SnapshotRingSize)
	assert.Equal(t, ids[2:], retained, "oldest snapshots evicted in order")
}

func TestInvalidateCaches_BumpsVersionAndPublishes(t *testing.T) {
	svc, _, pub := initializedService(t, testSchema("c1", "/blog/posts"))

	before := svc.Version(tn)
	svc.InvalidateCaches(tn, []string{"c1"})
	assert.Greater(t, svc.Version(tn), before)
	assert.Equal(t, 1, pub.count())
}

func TestGetNavigationStructureProgressive(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/tech/posts"))
	ctx := context.Background()

	nav, err := svc.GetNavigationStructureProgressive(ctx, tn, 1, nil)
	require.NoError(t, err)
	require.Len(t, nav, 1)
	assert.True(t, nav[0].HasChildren)
	assert.Empty(t, nav[0].Children)

	nav, err = svc.GetNavigationStructureProgressive(ctx, tn, 1, []string{nav[0].ID})
	require.NoError(t, err)
	require.Len(t, nav[0].Children, 1)
}

func TestGetBreadcrumb(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/tech/posts"))

	crumb, err := svc.GetBreadcrumb(context.Background(), tn, "/blog/tech/posts")
	require.NoError(t, err)
	require.Len(t, crumb, 3)
	assert.Equal(t, "/blog", crumb[0].Path)
	assert.Equal(t, "c1", crumb[2].ID)
}

func TestGetNodeChildrenAndDescendants(t *testing.T) {
	svc, _, _ := initializedService(t,
		testSchema("c1", "/blog/tech/posts"),
		testSchema("c2", "/blog/news"),
	)
	ctx := context.Background()

	crumb, err := svc.GetBreadcrumb(ctx, tn, "/blog")
	require.NoError(t, err)
	require.Len(t, crumb, 1)
	blogID := crumb[0].ID

	children, err := svc.GetNodeChildren(ctx, tn, blogID)
	require.NoError(t, err)
	assert.Len(t, children, 2, "direct children only")

	descendants, err := svc.GetDescendants(ctx, tn, blogID)
	require.NoError(t, err)
	assert.Len(t, descendants, 3, "the whole subtree below /blog")
}

func TestGetHealthStatus(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))

	health := svc.GetHealthStatus(tn)
	assert.Equal(t, tn, health.TenantID)
	assert.Equal(t, StatusInitialized, health.Status)
	assert.Equal(t, 2, health.Nodes)
	assert.Greater(t, health.Version, int64(0))
	assert.NotNil(t, health.ReadyAt)
	assert.Empty(t, health.LastError)
}

func TestGetDiagnostics(t *testing.T) {
	svc, _, _ := initializedService(t, testSchema("c1", "/blog/posts"))
	_, err := svc.CreateSnapshot(context.Background(), tn, "diag")
	require.NoError(t, err)

	diag := svc.GetDiagnostics(tn)
	assert.Equal(t, StatusInitialized, diag.Health.Status)
	assert.Equal(t, []string{"diag"}, diag.Snapshots)
	assert.Empty(t, diag.Issues)
}

func TestTenantIsolation_SeparateStates(t *testing.T) {
	src := &fakeSchemaSource{schemas: []*content.CollectionSchema{testSchema("c1", "/blog/posts")}}
	svc, _ := newTestService(newFakeRepo(), src, nil, nil)

	require.NoError(t, svc.Initialize(context.Background(), "tenant-a"))
	assert.Equal(t, StatusInitialized, svc.Status("tenant-a"))
	assert.Equal(t, StatusUninitialized, svc.Status("tenant-b"))
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, svc.ActiveTenantIDs())
}
