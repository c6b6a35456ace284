// Package content defines the nested view types projected from the flat node map.
package content

// TreeNode is a fully nested projection of a ContentNode.
type TreeNode struct {
	*ContentNode
	Children []*TreeNode `json:"children,omitempty"`
}

// NavNode is the depth-limited projection used by progressive navigation.
// Truncated nodes carry HasChildren so a UI can lazily page a large tree.
type NavNode struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	NodeType    NodeType   `json:"nodeType"`
	Icon        string     `json:"icon,omitempty"`
	Order       int        `json:"order"`
	HasChildren bool       `json:"hasChildren"`
	Children    []*NavNode `json:"children,omitempty"`
}
