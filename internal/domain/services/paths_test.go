package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", "/"},
		{"blog", "/blog"},
		{"/blog/", "/blog"},
		{"//blog///posts/", "/blog/posts"},
		{"/blog/posts", "/blog/posts"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanPath(tc.in), "input %q", tc.in)
	}
}

func TestParentPath(t *testing.T) {
	assert.Equal(t, "", ParentPath("/blog"))
	assert.Equal(t, "/blog", ParentPath("/blog/posts"))
	assert.Equal(t, "/blog/tech", ParentPath("/blog/tech/posts/"))
	assert.Equal(t, "", ParentPath("/"))
}

func TestAncestorPaths(t *testing.T) {
	assert.Nil(t, AncestorPaths("/"))
	assert.Nil(t, AncestorPaths("/blog"))
	assert.Equal(t, []string{"/blog"}, AncestorPaths("/blog/posts"))
	assert.Equal(t, []string{"/blog", "/blog/tech"}, AncestorPaths("/blog/tech/posts"))
}

func TestPathDepth(t *testing.T) {
	assert.Equal(t, 0, PathDepth("/"))
	assert.Equal(t, 1, PathDepth("/blog"))
	assert.Equal(t, 3, PathDepth("/blog/tech/posts"))
}

func TestPathSegment(t *testing.T) {
	assert.Equal(t, "posts", PathSegment("/blog/tech/posts"))
	assert.Equal(t, "blog", PathSegment("/blog"))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "abc123", NormalizeID("ABC-123"))
	assert.Equal(t, "abc123", NormalizeID("abc123"))

	// Idempotence: normalizing twice changes nothing.
	once := NormalizeID("My-Collection-ID")
	assert.Equal(t, once, NormalizeID(once))
}

func TestSameID(t *testing.T) {
	assert.True(t, SameID("posts-2024", "POSTS2024"))
	assert.False(t, SameID("posts", "pages"))
}
