package services

import (
	"fmt"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
)

// StructureIssue describes one detected invariant violation. Issues are
// reported, never auto-repaired.
type StructureIssue struct {
	NodeID string `json:"nodeId,omitempty"`
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail"`
}

// ValidateStructure checks the two indexes for dangling parent references,
// index disagreement, and parent cycles. byPath maps path -> node id.
func ValidateStructure(byID map[string]*content.ContentNode, byPath map[string]string) []StructureIssue {
	var issues []StructureIssue

	for id, node := range byID {
		if node.ParentID != nil {
			if _, ok := byID[*node.ParentID]; !ok {
				issues = append(issues, StructureIssue{
					NodeID: id,
					Path:   node.Path,
					Detail: fmt.Sprintf("parentId %q references a missing node", *node.ParentID),
				})
			}
		}
		if mapped, ok := byPath[node.Path]; !ok || mapped != id {
			issues = append(issues, StructureIssue{
				NodeID: id,
				Path:   node.Path,
				Detail: "path index disagrees with node index",
			})
		}
	}

	for path, id := range byPath {
		if _, ok := byID[id]; !ok {
			issues = append(issues, StructureIssue{
				NodeID: id,
				Path:   path,
				Detail: "orphaned path index entry",
			})
		}
	}

	for id := range byID {
		if isInParentCycle(byID, id) {
			issues = append(issues, StructureIssue{
				NodeID: id,
				Path:   byID[id].Path,
				Detail: "node participates in a parent cycle",
			})
		}
	}

	return issues
}

// IsDescendant reports whether candidate is a descendant of ancestorID by
// walking parent links. A broken or cyclic chain terminates the walk.
func IsDescendant(byID map[string]*content.ContentNode, ancestorID, candidateID string) bool {
	seen := make(map[string]bool)
	current := byID[candidateID]
	for current != nil && current.ParentID != nil {
		parentID := *current.ParentID
		if parentID == ancestorID {
			return true
		}
		if seen[parentID] {
			return false
		}
		seen[parentID] = true
		current = byID[parentID]
	}
	return false
}

func isInParentCycle(byID map[string]*content.ContentNode, startID string) bool {
	seen := make(map[string]bool)
	current := byID[startID]
	for current != nil && current.ParentID != nil {
		parentID := *current.ParentID
		if parentID == startID {
			return true
		}
		if seen[parentID] {
			// A cycle exists upstream, but startID is not on it.
			return false
		}
		seen[parentID] = true
		current = byID[parentID]
	}
	return false
}
