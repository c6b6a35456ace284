package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

func node(id, path string, parentID *string, order *int) *content.ContentNode {
	return &content.ContentNode{
		ID:       id,
		ParentID: parentID,
		Path:     path,
		NodeType: content.NodeTypeCategory,
		Name:     PathSegment(path),
		Order:    order,
	}
}

func ptr[T any](v T) *T { return &v }

func TestBuildTree_NestsAndSorts(t *testing.T) {
	nodes := []*content.ContentNode{
		node("blog", "/blog", nil, ptr(2)),
		node("docs", "/docs", nil, ptr(1)),
		node("posts", "/blog/posts", ptr("blog"), ptr(5)),
		node("drafts", "/blog/drafts", ptr("blog"), ptr(1)),
	}

	roots := BuildTree(nodes)
	require.Len(t, roots, 2)
	assert.Equal(t, "docs", roots[0].ID)
	assert.Equal(t, "blog", roots[1].ID)

	require.Len(t, roots[1].Children, 2)
	assert.Equal(t, "drafts", roots[1].Children[0].ID)
	assert.Equal(t, "posts", roots[1].Children[1].ID)
}

func TestBuildTree_MissingParentSurfacesAsRoot(t *testing.T) {
	orphan := node("orphan", "/gone/orphan", ptr("gone"), nil)
	roots := BuildTree([]*content.ContentNode{orphan})
	require.Len(t, roots, 1)
	assert.Equal(t, "orphan", roots[0].ID)
}

func TestBuildTree_UnorderedNodesSortLast(t *testing.T) {
	nodes := []*content.ContentNode{
		node("a", "/a", nil, nil),
		node("b", "/b", nil, ptr(1)),
	}
	roots := BuildTree(nodes)
	require.Len(t, roots, 2)
	assert.Equal(t, "b", roots[0].ID, "explicit order beats the default")
	assert.Equal(t, "a", roots[1].ID)
}

func TestBuildNavigation_DepthLimit(t *testing.T) {
	nodes := []*content.ContentNode{
		node("blog", "/blog", nil, nil),
		node("tech", "/blog/tech", ptr("blog"), nil),
		node("posts", "/blog/tech/posts", ptr("tech"), nil),
	}

	nav := BuildNavigation(nodes, 2, nil)
	require.Len(t, nav, 1)
	require.Len(t, nav[0].Children, 1)

	tech := nav[0].Children[0]
	assert.True(t, tech.HasChildren, "truncated node still advertises children")
	assert.Empty(t, tech.Children, "depth 2 stops before grandchildren")
}

func TestBuildNavigation_ExpandedIDsOverrideDepth(t *testing.T) {
	nodes := []*content.ContentNode{
		node("blog", "/blog", nil, nil),
		node("tech", "/blog/tech", ptr("blog"), nil),
		node("posts", "/blog/tech/posts", ptr("tech"), nil),
	}

	nav := BuildNavigation(nodes, 2, map[string]bool{"tech": true})
	tech := nav[0].Children[0]
	require.Len(t, tech.Children, 1)
	assert.Equal(t, "posts", tech.Children[0].ID)
}

func TestBuildNavigation_LeafHasNoChildrenFlag(t *testing.T) {
	nav := BuildNavigation([]*content.ContentNode{node("blog", "/blog", nil, nil)}, 5, nil)
	require.Len(t, nav, 1)
	assert.False(t, nav[0].HasChildren)
}

func TestBreadcrumb(t *testing.T) {
	blog := node("blog", "/blog", nil, nil)
	tech := node("tech", "/blog/tech", ptr("blog"), nil)
	posts := node("posts", "/blog/tech/posts", ptr("tech"), nil)
	byPath := map[string]*content.ContentNode{
		"/blog":            blog,
		"/blog/tech":       tech,
		"/blog/tech/posts": posts,
	}

	crumb := Breadcrumb(byPath, "/blog/tech/posts")
	require.Len(t, crumb, 3)
	assert.Equal(t, "blog", crumb[0].ID)
	assert.Equal(t, "posts", crumb[2].ID)
}

func TestBreadcrumb_ShortCircuitsOnMissingPrefix(t *testing.T) {
	posts := node("posts", "/blog/tech/posts", nil, nil)
	byPath := map[string]*content.ContentNode{"/blog/tech/posts": posts}

	crumb := Breadcrumb(byPath, "/blog/tech/posts")
	assert.Empty(t, crumb, "a missing first prefix stops the walk")
}

func TestBreadcrumb_RootIsEmpty(t *testing.T) {
	assert.Nil(t, Breadcrumb(map[string]*content.ContentNode{}, "/"))
}
