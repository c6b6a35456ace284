// Package content defines the application's core content-structure domain entities.
package content

import "time"

// NodeType discriminates the two kinds of entries in the content hierarchy.
type NodeType string

const (
	NodeTypeCategory   NodeType = "category"
	NodeTypeCollection NodeType = "collection"
)

// ContentNode is one entry in the content hierarchy. The path is the natural
// key when reconciling against persisted storage; the id is the CMS-side
// identity. For collection nodes the id must equal the schema's own id.
type ContentNode struct {
	ID           string            `json:"id"`
	ParentID     *string           `json:"parentId,omitempty"`
	Path         string            `json:"path"`
	NodeType     NodeType          `json:"nodeType"`
	Name         string            `json:"name"`
	Icon         string            `json:"icon,omitempty"`
	Order        *int              `json:"order,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
	Collection   *CollectionSchema `json:"collectionDef,omitempty"`
	TenantID     string            `json:"tenantId,omitempty"`
	Created      time.Time         `json:"createdAt"`
	Changed      time.Time         `json:"updatedAt"`
}

// IsCollection reports whether the node carries a collection definition.
func (n *ContentNode) IsCollection() bool {
	return n.NodeType == NodeTypeCollection
}

// Clone returns a deep copy of the node. Collection definitions are owned
// copies, so snapshots and rollbacks never alias live state.
func (n *ContentNode) Clone() *ContentNode {
	dup := *n
	if n.ParentID != nil {
		parentID := *n.ParentID
		dup.ParentID = &parentID
	}
	if n.Order != nil {
		order := *n.Order
		dup.Order = &order
	}
	if n.Translations != nil {
		dup.Translations = make(map[string]string, len(n.Translations))
		for k, v := range n.Translations {
			dup.Translations[k] = v
		}
	}
	if n.Collection != nil {
		dup.Collection = n.Collection.Clone()
	}
	return &dup
}

// CollectionSchema is the full field/definition payload for a collection,
// recovered from scanning compiled definitions on disk.
type CollectionSchema struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Path         string            `json:"path"`
	Icon         string            `json:"icon,omitempty"`
	Order        *int              `json:"order,omitempty"`
	Status       string            `json:"status,omitempty"`
	TenantID     string            `json:"tenantId,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
	Fields       []SchemaField     `json:"fields,omitempty"`
}

// SchemaField describes one field of a collection schema. The persisted copy
// of a collection node intentionally omits the field list to keep structure
// documents small.
type SchemaField struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Type     string         `json:"type"`
	Required bool           `json:"required,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Clone returns a deep copy of the schema.
func (s *CollectionSchema) Clone() *CollectionSchema {
	dup := *s
	if s.Order != nil {
		order := *s.Order
		dup.Order = &order
	}
	if s.Translations != nil {
		dup.Translations = make(map[string]string, len(s.Translations))
		for k, v := range s.Translations {
			dup.Translations[k] = v
		}
	}
	if s.Fields != nil {
		dup.Fields = make([]SchemaField, len(s.Fields))
		copy(dup.Fields, s.Fields)
	}
	return &dup
}

// Stripped returns a copy of the schema without its field list, suitable for
// embedding in the persisted structure document.
func (s *CollectionSchema) Stripped() *CollectionSchema {
	dup := s.Clone()
	dup.Fields = nil
	return dup
}

// CollectionStats is the narrow projection cached separately from full schema
// fetches so list headers never serialize large field arrays.
type CollectionStats struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	Status     string `json:"status,omitempty"`
	FieldCount int    `json:"fieldCount"`
}
