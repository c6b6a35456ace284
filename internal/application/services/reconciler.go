package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	domainservices "github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
)

// Reconciler merges freshly scanned collection schemas with the persisted
// node set into one consistent tree: ids survive where the persisted store
// already has them, missing category nodes are derived from path prefixes,
// and parent linkage is recomputed depth-first.
type Reconciler struct {
	repo   repositories.StructureRepository
	logger *logging.ChanneledLogger
}

// NewReconciler creates a reconciler. repo may be nil; callers then use
// BuildInMemory directly.
func NewReconciler(repo repositories.StructureRepository, logger *logging.ChanneledLogger) *Reconciler {
	return &Reconciler{repo: repo, logger: logger}
}

// Reconcile runs the full merge against the storage port and returns the
// consistent node list re-read from storage, with each collection's full
// schema re-attached (the persisted copy intentionally omits the field list).
func (r *Reconciler) Reconcile(ctx context.Context, tenantID string, schemas []*content.CollectionSchema) ([]*content.ContentNode, error) {
	start := time.Now()

	persisted, err := r.repo.GetStructure(ctx, repositories.ModeFlat,
		&repositories.StructureFilter{TenantID: tenantID}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted structure: %w", err)
	}

	existingByPath := make(map[string]*content.ContentNode, len(persisted))
	for _, n := range persisted {
		existingByPath[n.Path] = n
	}

	ops := buildNodeOps(tenantID, schemas, existingByPath)
	if len(ops) > 0 {
		stripped := make([]*content.ContentNode, len(ops))
		for i, op := range ops {
			dup := op.Clone()
			if dup.Collection != nil {
				dup.Collection = dup.Collection.Stripped()
			}
			stripped[i] = dup
		}
		if err := r.repo.CreateMany(ctx, tenantID, stripped); err != nil {
			return nil, fmt.Errorf("failed to upsert reconciled nodes: %w", err)
		}

		// Upsert-by-path cannot change a stored primary id; a repair pass
		// rewrites any collection document persisted under a stale id.
		if repairer, ok := r.repo.(repositories.IDRepairer); ok {
			collections := make([]*content.ContentNode, 0, len(ops))
			for _, op := range ops {
				if op.IsCollection() {
					collections = append(collections, op)
				}
			}
			if err := repairer.FixMismatchedNodeIDs(ctx, tenantID, collections); err != nil {
				return nil, fmt.Errorf("failed to repair node ids: %w", err)
			}
		}
	}

	final, err := r.repo.GetStructure(ctx, repositories.ModeFlat,
		&repositories.StructureFilter{TenantID: tenantID}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read reconciled structure: %w", err)
	}

	attachSchemas(final, schemas)

	if err := r.repo.InvalidateCategory(ctx, tenantID); err != nil {
		// Cache invalidation must never fail the reconciliation it follows.
		r.logger.Structure().Warn("Storage-side category invalidation failed",
			"tenantId", tenantID, "error", err.Error())
	}

	r.logger.Structure().Info("Reconciliation completed", "tenantId", tenantID,
		"schemas", len(schemas), "nodes", len(final), "duration", time.Since(start))
	return final, nil
}

// BuildInMemory runs the same path/parent derivation without any persistence
// round-trip. Used when no storage backend is configured (setup mode).
func (r *Reconciler) BuildInMemory(tenantID string, schemas []*content.CollectionSchema) []*content.ContentNode {
	return buildNodeOps(tenantID, schemas, map[string]*content.ContentNode{})
}

// buildNodeOps derives the complete pending node set: implicit category
// nodes from every distinct directory prefix, plus one collection node per
// schema keyed by the schema's own id. Ops come back sorted by path depth
// ascending with parent ids assigned.
func buildNodeOps(tenantID string, schemas []*content.CollectionSchema, existingByPath map[string]*content.ContentNode) []*content.ContentNode {
	now := time.Now().UTC()
	opsByPath := make(map[string]*content.ContentNode)

	for _, schema := range schemas {
		path := domainservices.CleanPath(schema.Path)
		if path == "" || path == "/" {
			continue
		}

		for _, ancestor := range domainservices.AncestorPaths(path) {
			if _, pending := opsByPath[ancestor]; pending {
				continue
			}
			opsByPath[ancestor] = categoryNode(tenantID, ancestor, existingByPath[ancestor], now)
		}

		node := &content.ContentNode{
			ID:           schema.ID,
			Path:         path,
			NodeType:     content.NodeTypeCollection,
			Name:         schema.Name,
			Icon:         schema.Icon,
			Order:        schema.Order,
			Translations: schema.Translations,
			Collection:   schema.Clone(),
			TenantID:     tenantID,
			Created:      now,
			Changed:      now,
		}
		if existing, ok := existingByPath[path]; ok {
			node.Created = existing.Created
			if node.Icon == "" {
				node.Icon = existing.Icon
			}
			if node.Order == nil {
				node.Order = existing.Order
			}
		}
		opsByPath[path] = node
	}

	ops := make([]*content.ContentNode, 0, len(opsByPath))
	for _, op := range opsByPath {
		ops = append(ops, op)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		di, dj := domainservices.PathDepth(ops[i].Path), domainservices.PathDepth(ops[j].Path)
		if di != dj {
			return di < dj
		}
		return ops[i].Path < ops[j].Path
	})

	// Depth-ascending order guarantees every parent's id is assigned before
	// its children look it up.
	idByPath := make(map[string]string, len(ops))
	for _, op := range ops {
		idByPath[op.Path] = op.ID
	}
	for _, op := range ops {
		parentPath := domainservices.ParentPath(op.Path)
		if parentPath == "" {
			op.ParentID = nil
			continue
		}
		if parentID, ok := idByPath[parentPath]; ok {
			op.ParentID = &parentID
		} else if existing, ok := existingByPath[parentPath]; ok {
			parentID := existing.ID
			op.ParentID = &parentID
		} else {
			op.ParentID = nil
		}
	}

	return ops
}

func categoryNode(tenantID, path string, existing *content.ContentNode, now time.Time) *content.ContentNode {
	node := &content.ContentNode{
		ID:       ulid.Make().String(),
		Path:     path,
		NodeType: content.NodeTypeCategory,
		Name:     domainservices.PathSegment(path),
		TenantID: tenantID,
		Created:  now,
		Changed:  now,
	}
	if existing != nil {
		node.ID = existing.ID
		node.Name = existing.Name
		node.Icon = existing.Icon
		node.Order = existing.Order
		node.Translations = existing.Translations
		node.Created = existing.Created
	}
	return node
}

// attachSchemas re-attaches the full schema payload to collection nodes read
// back from storage, matching on normalized ids.
func attachSchemas(nodes []*content.ContentNode, schemas []*content.CollectionSchema) {
	byID := make(map[string]*content.CollectionSchema, len(schemas))
	for _, schema := range schemas {
		byID[domainservices.NormalizeID(schema.ID)] = schema
	}
	for _, n := range nodes {
		if n.NodeType != content.NodeTypeCollection {
			continue
		}
		if schema, ok := byID[domainservices.NormalizeID(n.ID)]; ok {
			n.Collection = schema.Clone()
		}
	}
}
