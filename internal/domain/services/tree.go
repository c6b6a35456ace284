package services

import (
	"sort"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// SortOrder returns the node's explicit order, or the default (999) so
// unordered nodes take a stable low-priority position among siblings.
func SortOrder(n *content.ContentNode) int {
	if n.Order != nil {
		return *n.Order
	}
	return config.DefaultNodeOrder
}

// BuildTree projects the flat node list into a nested tree in a single O(n)
// pass: a child list per node, then partitioning into roots vs attached
// children. Nodes whose parent is missing surface as roots rather than being
// dropped.
func BuildTree(nodes []*content.ContentNode) []*content.TreeNode {
	byID := make(map[string]*content.TreeNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &content.TreeNode{ContentNode: n}
	}

	roots := make([]*content.TreeNode, 0)
	for _, n := range nodes {
		tn := byID[n.ID]
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}

	sortTreeLevel(roots)
	for _, tn := range byID {
		sortTreeLevel(tn.Children)
	}
	return roots
}

func sortTreeLevel(level []*content.TreeNode) {
	sort.SliceStable(level, func(i, j int) bool {
		return SortOrder(level[i].ContentNode) < SortOrder(level[j].ContentNode)
	})
}

// BuildNavigation builds the depth-limited progressive navigation view. The
// builder only descends past maxDepth for nodes explicitly listed in
// expandedIDs; truncated nodes are annotated with HasChildren computed by a
// membership scan over the flat list.
func BuildNavigation(nodes []*content.ContentNode, maxDepth int, expandedIDs map[string]bool) []*content.NavNode {
	children := make(map[string][]*content.ContentNode, len(nodes))
	roots := make([]*content.ContentNode, 0)
	for _, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		} else {
			roots = append(roots, n)
		}
	}

	var build func(level []*content.ContentNode, depth int) []*content.NavNode
	build = func(level []*content.ContentNode, depth int) []*content.NavNode {
		sort.SliceStable(level, func(i, j int) bool {
			return SortOrder(level[i]) < SortOrder(level[j])
		})
		out := make([]*content.NavNode, 0, len(level))
		for _, n := range level {
			nav := &content.NavNode{
				ID:          n.ID,
				Name:        n.Name,
				Path:        n.Path,
				NodeType:    n.NodeType,
				Icon:        n.Icon,
				Order:       SortOrder(n),
				HasChildren: len(children[n.ID]) > 0,
			}
			if nav.HasChildren && (depth < maxDepth || expandedIDs[n.ID]) {
				nav.Children = build(children[n.ID], depth+1)
			}
			out = append(out, nav)
		}
		return out
	}
	return build(roots, 1)
}

// Breadcrumb walks path prefixes through the by-path index, short-circuiting
// on the first miss. The returned chain runs root-first and ends at the node
// for path itself when every prefix resolves.
func Breadcrumb(byPath map[string]*content.ContentNode, path string) []*content.ContentNode {
	path = CleanPath(path)
	if path == "" || path == "/" {
		return nil
	}
	prefixes := append(AncestorPaths(path), path)
	crumb := make([]*content.ContentNode, 0, len(prefixes))
	for _, prefix := range prefixes {
		node, ok := byPath[prefix]
		if !ok {
			break
		}
		crumb = append(crumb, node)
	}
	return crumb
}
