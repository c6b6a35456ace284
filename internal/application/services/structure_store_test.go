package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

func storeNode(id, path string, parentID *string) *content.ContentNode {
	return &content.ContentNode{
		ID:       id,
		ParentID: parentID,
		Path:     path,
		NodeType: content.NodeTypeCategory,
		Name:     id,
	}
}

func strPtr(s string) *string { return &s }

func TestReplace_IndexesAgree(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{
		storeNode("blog", "/blog", nil),
		storeNode("posts", "/blog/posts", strPtr("blog")),
	})

	assert.Equal(t, 2, store.Len())
	assert.Empty(t, store.Validate())

	n, ok := store.GetByPath("/blog/posts")
	require.True(t, ok)
	assert.Equal(t, "posts", n.ID)

	n, ok = store.Get("blog")
	require.True(t, ok)
	assert.Equal(t, "/blog", n.Path)
}

func TestUpsert_PathChangeDropsStaleEntry(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("blog", "/blog", nil)})

	moved := storeNode("blog", "/weblog", nil)
	store.Upsert([]*content.ContentNode{moved})

	_, ok := store.GetByPath("/blog")
	assert.False(t, ok, "old path entry must be gone")
	n, ok := store.GetByPath("/weblog")
	require.True(t, ok)
	assert.Equal(t, "blog", n.ID)
	assert.Empty(t, store.Validate())
}

func TestUpsert_NewIDOnExistingPathDisplacesOldNode(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("old", "/x", nil)})

	store.Upsert([]*content.ContentNode{storeNode("new", "/x", nil)})

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("old")
	assert.False(t, ok, "displaced node dropped from the id index")
	n, ok := store.GetByPath("/x")
	require.True(t, ok)
	assert.Equal(t, "new", n.ID)
	assert.Empty(t, store.Validate())
}

func TestRemove(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("blog", "/blog", nil)})

	assert.True(t, store.Remove("/blog"))
	assert.False(t, store.Remove("/blog"), "second remove reports absence")
	assert.Equal(t, 0, store.Len())
}

func TestGet_NormalizedFallback(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("My-Node-1", "/x", nil)})

	n, ok := store.Get("mynode1")
	require.True(t, ok)
	assert.Equal(t, "My-Node-1", n.ID)
}

func TestVersion_StrictlyMonotonic(t *testing.T) {
	store := NewStructureStore()
	prev := store.Version()
	for i := 0; i < 100; i++ {
		store.Touch()
		v := store.Version()
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestSnapshotRing_EvictsOldest(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("blog", "/blog", nil)})

	for i := 0; i < config.SnapshotRingSize+1; i++ {
		store.CreateSnapshot(fmt.Sprintf("snap-%d", i))
	}

	ids := store.SnapshotIDs()
	require.Len(t, ids, config.SnapshotRingSize)
	assert.Equal(t, "snap-1", ids[0], "oldest snapshot evicted")
	assert.Equal(t, fmt.Sprintf("snap-%d", config.SnapshotRingSize), ids[len(ids)-1])

	assert.False(t, store.RollbackToSnapshot("snap-0"), "evicted snapshot is unreachable")
}

func TestRollback_RestoresBothIndexes(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{
		storeNode("blog", "/blog", nil),
		storeNode("posts", "/blog/posts", strPtr("blog")),
	})
	store.CreateSnapshot("before")

	store.Remove("/blog/posts")
	store.Upsert([]*content.ContentNode{storeNode("docs", "/docs", nil)})
	require.Equal(t, 2, store.Len())

	require.True(t, store.RollbackToSnapshot("before"))
	assert.Equal(t, 2, store.Len())
	_, ok := store.GetByPath("/blog/posts")
	assert.True(t, ok)
	_, ok = store.GetByPath("/docs")
	assert.False(t, ok)
	assert.Empty(t, store.Validate())
}

func TestRollback_SnapshotSurvivesLaterMutation(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("blog", "/blog", nil)})
	store.CreateSnapshot("s1")

	require.True(t, store.RollbackToSnapshot("s1"))

	// Mutating the live node after rollback must not leak into the snapshot.
	n, ok := store.Get("blog")
	require.True(t, ok)
	n.Name = "mutated"

	require.True(t, store.RollbackToSnapshot("s1"))
	n, ok = store.Get("blog")
	require.True(t, ok)
	assert.Equal(t, "blog", n.Name)
}

func TestRollback_BumpsVersion(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{storeNode("blog", "/blog", nil)})
	store.CreateSnapshot("s1")

	before := store.Version()
	require.True(t, store.RollbackToSnapshot("s1"))
	assert.Greater(t, store.Version(), before)
}

func TestNodes_SortedByPath(t *testing.T) {
	store := NewStructureStore()
	store.Replace([]*content.ContentNode{
		storeNode("z", "/zebra", nil),
		storeNode("a", "/alpha", nil),
	})

	nodes := store.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "/alpha", nodes[0].Path)
	assert.Equal(t, "/zebra", nodes[1].Path)
}
