// Package services provides pure domain logic for the content structure:
// path derivation, identifier normalization, tree projection, and
// structural validation. Nothing here touches persistence.
package services

import "strings"

// CleanPath canonicalizes a slash-delimited path: single leading slash, no
// trailing slash, collapsed separators. An empty input stays empty.
func CleanPath(path string) string {
	if path == "" {
		return ""
	}
	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// ParentPath returns the path one level up, or "" for root-level paths.
func ParentPath(path string) string {
	path = CleanPath(path)
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

// AncestorPaths returns every distinct directory prefix of path in ascending
// depth order: "/blog/tech/posts" yields ["/blog", "/blog/tech"]. These are
// the paths that imply category nodes during reconciliation.
func AncestorPaths(path string) []string {
	path = CleanPath(path)
	if path == "" || path == "/" {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 2 {
		return nil
	}
	ancestors := make([]string, 0, len(segments)-1)
	prefix := ""
	for _, seg := range segments[:len(segments)-1] {
		prefix += "/" + seg
		ancestors = append(ancestors, prefix)
	}
	return ancestors
}

// PathDepth counts the segments of a cleaned path. "/" has depth 0.
func PathDepth(path string) int {
	path = CleanPath(path)
	if path == "" || path == "/" {
		return 0
	}
	return strings.Count(path, "/")
}

// PathSegment returns the final segment of the path.
func PathSegment(path string) string {
	path = CleanPath(path)
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// NormalizeID maps dash-bearing and dash-free forms of an identifier to one
// canonical form. Idempotent: NormalizeID(NormalizeID(x)) == NormalizeID(x).
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

// SameID reports whether two identifiers resolve to the same canonical node.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}
