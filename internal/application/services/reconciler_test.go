package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

func TestReconcile_DerivesCategoriesAndCollections(t *testing.T) {
	repo := newFakeRepo()
	r := NewReconciler(repo, newTestLogger())

	nodes, err := r.Reconcile(context.Background(), "default",
		[]*content.CollectionSchema{testSchema("c1", "/blog/posts")})
	require.NoError(t, err)
	require.Len(t, nodes, 2, "one derived category plus one collection")

	byPath := make(map[string]*content.ContentNode)
	for _, n := range nodes {
		byPath[n.Path] = n
	}

	category := byPath["/blog"]
	require.NotNil(t, category)
	assert.Equal(t, content.NodeTypeCategory, category.NodeType)
	assert.Equal(t, "blog", category.Name)
	assert.NotEmpty(t, category.ID)
	assert.Nil(t, category.ParentID)

	collection := byPath["/blog/posts"]
	require.NotNil(t, collection)
	assert.Equal(t, content.NodeTypeCollection, collection.NodeType)
	assert.Equal(t, "c1", collection.ID, "collection node id equals the schema id")
	require.NotNil(t, collection.ParentID)
	assert.Equal(t, category.ID, *collection.ParentID)

	require.NotNil(t, collection.Collection)
	assert.NotEmpty(t, collection.Collection.Fields, "full schema re-attached after the round-trip")
}

func TestReconcile_PersistedCopyDropsFields(t *testing.T) {
	repo := newFakeRepo()
	r := NewReconciler(repo, newTestLogger())

	_, err := r.Reconcile(context.Background(), "default",
		[]*content.CollectionSchema{testSchema("c1", "/blog/posts")})
	require.NoError(t, err)

	stored := repo.stored("/blog/posts")
	require.NotNil(t, stored)
	require.NotNil(t, stored.Collection)
	assert.Empty(t, stored.Collection.Fields)
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	r := NewReconciler(repo, newTestLogger())
	schemas := []*content.CollectionSchema{testSchema("c1", "/blog/posts")}

	first, err := r.Reconcile(context.Background(), "default", schemas)
	require.NoError(t, err)

	second, err := r.Reconcile(context.Background(), "default", schemas)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	ids := func(nodes []*content.ContentNode) map[string]string {
		m := make(map[string]string)
		for _, n := range nodes {
			m[n.Path] = n.ID
		}
		return m
	}
	assert.Equal(t, ids(first), ids(second), "derived ids survive a second run")
	assert.Equal(t, 0, repo.repairCount(), "a consistent store needs no repairs")
}

func TestReconcile_RepairsStaleCollectionID(t *testing.T) {
	repo := newFakeRepo()
	repo.byPath["/blog/posts"] = &content.ContentNode{
		ID:       "stale",
		Path:     "/blog/posts",
		NodeType: content.NodeTypeCollection,
		Name:     "posts",
		Created:  time.Now().UTC().Add(-time.Hour),
	}
	r := NewReconciler(repo, newTestLogger())

	nodes, err := r.Reconcile(context.Background(), "default",
		[]*content.CollectionSchema{testSchema("c1", "/blog/posts")})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.repairCount())
	stored := repo.stored("/blog/posts")
	require.NotNil(t, stored)
	assert.Equal(t, "c1", stored.ID, "stored id rewritten to the schema id")

	for _, n := range nodes {
		if n.Path == "/blog/posts" {
			assert.Equal(t, "c1", n.ID)
		}
	}
}

func TestReconcile_PreservesExistingCategoryMetadata(t *testing.T) {
	repo := newFakeRepo()
	r := NewReconciler(repo, newTestLogger())
	schemas := []*content.CollectionSchema{testSchema("c1", "/blog/posts")}

	first, err := r.Reconcile(context.Background(), "default", schemas)
	require.NoError(t, err)

	var categoryID string
	for _, n := range first {
		if n.Path == "/blog" {
			categoryID = n.ID
		}
	}
	require.NotEmpty(t, categoryID)

	// A second collection under the same prefix must reuse the category.
	schemas = append(schemas, testSchema("c2", "/blog/drafts"))
	second, err := r.Reconcile(context.Background(), "default", schemas)
	require.NoError(t, err)
	require.Len(t, second, 3)

	for _, n := range second {
		if n.Path == "/blog" {
			assert.Equal(t, categoryID, n.ID)
		}
		if n.Path == "/blog/drafts" {
			require.NotNil(t, n.ParentID)
			assert.Equal(t, categoryID, *n.ParentID)
		}
	}
}

func TestBuildInMemory(t *testing.T) {
	r := NewReconciler(nil, newTestLogger())

	nodes := r.BuildInMemory("default", []*content.CollectionSchema{
		testSchema("c1", "/blog/tech/posts"),
	})
	require.Len(t, nodes, 3, "two derived categories plus the collection")

	// Depth-ascending: parents precede children.
	assert.Equal(t, "/blog", nodes[0].Path)
	assert.Equal(t, "/blog/tech", nodes[1].Path)
	assert.Equal(t, "/blog/tech/posts", nodes[2].Path)

	require.NotNil(t, nodes[1].ParentID)
	assert.Equal(t, nodes[0].ID, *nodes[1].ParentID)
	require.NotNil(t, nodes[2].ParentID)
	assert.Equal(t, nodes[1].ID, *nodes[2].ParentID)

	require.NotNil(t, nodes[2].Collection)
	assert.NotEmpty(t, nodes[2].Collection.Fields, "in-memory build keeps the full schema")
}

func TestBuildInMemory_SkipsRootPathSchemas(t *testing.T) {
	r := NewReconciler(nil, newTestLogger())
	bad := testSchema("c1", "/")
	assert.Empty(t, r.BuildInMemory("default", []*content.CollectionSchema{bad}))
}
