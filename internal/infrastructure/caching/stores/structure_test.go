package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

const testTenant = "default"

func collectionNode(id, path string) *content.ContentNode {
	return &content.ContentNode{
		ID:       id,
		Path:     path,
		NodeType: content.NodeTypeCollection,
		Name:     id,
	}
}

func TestFirstCollection_HitAndInvalidate(t *testing.T) {
	store := NewStructureStore()
	store.SetFirstCollection(testTenant, collectionNode("c1", "/blog"))

	got, ok := store.GetFirstCollection(testTenant)
	require.True(t, ok)
	assert.Equal(t, "c1", got.ID)

	store.InvalidateFirstCollection(testTenant)
	_, ok = store.GetFirstCollection(testTenant)
	assert.False(t, ok)
}

func TestFirstCollection_TTLExpiry(t *testing.T) {
	store := NewStructureStore()
	store.SetFirstCollection(testTenant, collectionNode("c1", "/blog"))

	cache, exists := store.GetTenantCache(testTenant)
	require.True(t, exists)
	cache.Mu.Lock()
	cache.FirstCollection.CachedAt = time.Now().Add(-config.FirstCollectionTTL - time.Second)
	cache.Mu.Unlock()

	_, ok := store.GetFirstCollection(testTenant)
	assert.False(t, ok, "entry past its TTL must miss")
}

func TestCollection_TTLExpiryEvictsEntry(t *testing.T) {
	store := NewStructureStore()
	store.SetCollection(testTenant, "/blog", collectionNode("c1", "/blog"))

	cache, _ := store.GetTenantCache(testTenant)
	cache.Mu.Lock()
	cache.Collections["/blog"].CachedAt = time.Now().Add(-config.CollectionTTL - time.Second)
	cache.Mu.Unlock()

	_, ok := store.GetCollection(testTenant, "/blog")
	assert.False(t, ok)

	cache.Mu.RLock()
	_, still := cache.Collections["/blog"]
	cache.Mu.RUnlock()
	assert.False(t, still, "expired entry is removed on read")
}

func TestCollectionStats_RoundTrip(t *testing.T) {
	store := NewStructureStore()
	store.SetCollectionStats(testTenant, "c1", &content.CollectionStats{ID: "c1", FieldCount: 7})

	stats, ok := store.GetCollectionStats(testTenant, "c1")
	require.True(t, ok)
	assert.Equal(t, 7, stats.FieldCount)
}

func TestHitMissCounters(t *testing.T) {
	store := NewStructureStore()
	store.InitializeTenant(testTenant)

	_, _ = store.GetCollection(testTenant, "/missing")
	store.SetCollection(testTenant, "/blog", collectionNode("c1", "/blog"))
	_, _ = store.GetCollection(testTenant, "/blog")

	stats := store.GetTenantStats(testTenant)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
}

func TestInvalidateSpecificCaches(t *testing.T) {
	store := NewStructureStore()
	store.SetCollection(testTenant, "/blog", collectionNode("c1", "/blog"))
	store.SetCollection(testTenant, "/docs", collectionNode("c2", "/docs"))
	store.SetCollectionStats(testTenant, "c1", &content.CollectionStats{ID: "c1"})
	store.SetFirstCollection(testTenant, collectionNode("c1", "/blog"))

	store.InvalidateSpecificCaches(testTenant, []string{"c1", "/blog"})

	_, ok := store.GetCollection(testTenant, "/blog")
	assert.False(t, ok)
	_, ok = store.GetCollectionStats(testTenant, "c1")
	assert.False(t, ok)
	_, ok = store.GetFirstCollection(testTenant)
	assert.False(t, ok, "targeted invalidation always clears the first-collection memo")

	_, ok = store.GetCollection(testTenant, "/docs")
	assert.True(t, ok, "unrelated entries survive")
}

func TestInvalidateSpecificCaches_MatchesCachedNodeIdentity(t *testing.T) {
	store := NewStructureStore()
	// Cached under an identifier that is neither the id nor the path.
	store.SetCollection(testTenant, "someAlias", collectionNode("c1", "/blog"))

	store.InvalidateSpecificCaches(testTenant, []string{"c1"})
	_, ok := store.GetCollection(testTenant, "someAlias")
	assert.False(t, ok)
}

func TestInvalidateWithDependents_Cascades(t *testing.T) {
	store := NewStructureStore()
	store.SetCollection(testTenant, "a", collectionNode("a", "/a"))
	store.SetCollection(testTenant, "b", collectionNode("b", "/b"))
	store.SetCollection(testTenant, "c", collectionNode("c", "/c"))
	store.RegisterDependency(testTenant, "a", "b")

	store.InvalidateWithDependents(testTenant, "a")

	_, ok := store.GetCollection(testTenant, "a")
	assert.False(t, ok)
	_, ok = store.GetCollection(testTenant, "b")
	assert.False(t, ok, "registered dependent is cleared too")
	_, ok = store.GetCollection(testTenant, "c")
	assert.True(t, ok, "non-dependent survives")
}

func TestInvalidateTenant_ClearsEveryTier(t *testing.T) {
	store := NewStructureStore()
	store.SetFirstCollection(testTenant, collectionNode("c1", "/blog"))
	store.SetCollection(testTenant, "/blog", collectionNode("c1", "/blog"))
	store.SetCollectionStats(testTenant, "c1", &content.CollectionStats{ID: "c1"})

	store.InvalidateTenant(testTenant)

	stats := store.GetTenantStats(testTenant)
	assert.Equal(t, int64(0), stats.Size)
}

func TestPurgeExpired(t *testing.T) {
	store := NewStructureStore()
	store.SetCollection(testTenant, "/old", collectionNode("old", "/old"))
	store.SetCollection(testTenant, "/new", collectionNode("new", "/new"))

	cache, _ := store.GetTenantCache(testTenant)
	cache.Mu.Lock()
	cache.Collections["/old"].CachedAt = time.Now().Add(-config.CollectionTTL - time.Second)
	cache.Mu.Unlock()

	store.PurgeExpired(testTenant)

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()
	assert.NotContains(t, cache.Collections, "/old")
	assert.Contains(t, cache.Collections, "/new")
}

func TestTenantIsolation(t *testing.T) {
	store := NewStructureStore()
	store.SetCollection("tenant-a", "/blog", collectionNode("c1", "/blog"))

	_, ok := store.GetCollection("tenant-b", "/blog")
	assert.False(t, ok)
}
