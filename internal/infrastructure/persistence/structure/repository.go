// Package structure provides the SQL-backed storage adapter for the content
// structure. Paths are the unique index; node ids are CMS-side identity and
// may be rewritten by the repair pass.
package structure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/repositories"
	domainservices "github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/tenant"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS content_structure (
	path TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	parent_id TEXT,
	node_type TEXT NOT NULL,
	name TEXT NOT NULL,
	icon TEXT,
	sort_order INTEGER,
	translations TEXT,
	collection_def TEXT,
	tenant_id TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_structure_id ON content_structure(id);
CREATE INDEX IF NOT EXISTS idx_content_structure_parent ON content_structure(parent_id);`

// Repository implements the storage port over per-tenant SQLite/libsql
// databases. Structure reads are memoized per tenant until invalidated.
type Repository struct {
	tenants *tenant.Manager
	logger  *logging.ChanneledLogger

	migrated  sync.Map // tenantID -> bool
	readCache sync.Map // tenantID -> *structureReadCache
}

type structureReadCache struct {
	nodes    []*content.ContentNode
	cachedAt time.Time
}

// NewRepository creates the SQL structure repository.
func NewRepository(tenants *tenant.Manager, logger *logging.ChanneledLogger) *Repository {
	return &Repository{tenants: tenants, logger: logger}
}

func (r *Repository) conn(tenantID string) (*sql.DB, string, error) {
	tctx, err := r.tenants.GetContext(tenantID)
	if err != nil {
		return nil, "", err
	}
	if _, done := r.migrated.Load(tctx.TenantID); !done {
		if _, err := tctx.Database.Conn.Exec(createTableSQL); err != nil {
			return nil, "", fmt.Errorf("failed to migrate structure table: %w", err)
		}
		r.migrated.Store(tctx.TenantID, true)
	}
	return tctx.Database.Conn, tctx.TenantID, nil
}

// GetStructure reads the full node set. Flat mode orders by path; nested mode
// orders by depth then path so parents always precede children.
func (r *Repository) GetStructure(ctx context.Context, mode repositories.StructureMode, filter *repositories.StructureFilter, bypassCache bool) ([]*content.ContentNode, error) {
	tenantID := ""
	if filter != nil {
		tenantID = filter.TenantID
	}

	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return nil, err
	}

	if !bypassCache && filter != nil && filter.NodeType == "" && filter.PathPrefix == "" {
		if cached, ok := r.readCache.Load(tenantID); ok {
			entry := cached.(*structureReadCache)
			if time.Since(entry.cachedAt) <= config.StructureCacheTTL {
				return orderNodes(entry.nodes, mode), nil
			}
		}
	}

	query := `SELECT path, id, parent_id, node_type, name, icon, sort_order, translations, collection_def, tenant_id, created_at, updated_at
	          FROM content_structure ORDER BY path`

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Database().Error("Structure query failed", "error", err.Error(), "tenantId", tenantID)
		return nil, fmt.Errorf("failed to query structure: %w", err)
	}
	defer rows.Close()

	var nodes []*content.ContentNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read structure rows: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Structure loaded from database", "tenantId", tenantID, "count", len(nodes), "duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, tenantID)
	}

	if filter == nil || (filter.NodeType == "" && filter.PathPrefix == "") {
		r.readCache.Store(tenantID, &structureReadCache{nodes: nodes, cachedAt: time.Now()})
	}

	return orderNodes(filterNodes(nodes, filter), mode), nil
}

func filterNodes(nodes []*content.ContentNode, filter *repositories.StructureFilter) []*content.ContentNode {
	if filter == nil || (filter.NodeType == "" && filter.PathPrefix == "") {
		return nodes
	}
	out := make([]*content.ContentNode, 0, len(nodes))
	for _, n := range nodes {
		if filter.NodeType != "" && n.NodeType != filter.NodeType {
			continue
		}
		if filter.PathPrefix != "" && !strings.HasPrefix(n.Path, filter.PathPrefix) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func orderNodes(nodes []*content.ContentNode, mode repositories.StructureMode) []*content.ContentNode {
	out := make([]*content.ContentNode, len(nodes))
	copy(out, nodes)
	if mode == repositories.ModeNested {
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := domainservices.PathDepth(out[i].Path), domainservices.PathDepth(out[j].Path)
			if di != dj {
				return di < dj
			}
			return out[i].Path < out[j].Path
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	}
	return out
}

// CreateMany upserts nodes keyed by path inside one transaction. The stored
// id is never rewritten on conflict; FixMismatchedNodeIDs handles that.
func (r *Repository) CreateMany(ctx context.Context, tenantID string, nodes []*content.ContentNode) error {
	if len(nodes) == 0 {
		return nil
	}

	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return err
	}

	query := `INSERT INTO content_structure
		(path, id, parent_id, node_type, name, icon, sort_order, translations, collection_def, tenant_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			parent_id = excluded.parent_id,
			node_type = excluded.node_type,
			name = excluded.name,
			icon = excluded.icon,
			sort_order = excluded.sort_order,
			translations = excluded.translations,
			collection_def = excluded.collection_def,
			tenant_id = excluded.tenant_id,
			updated_at = excluded.updated_at`

	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bulk upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare bulk upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, node := range nodes {
		args, err := nodeArgs(node, now)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			r.logger.Database().Error("Structure upsert failed", "error", err.Error(), "path", node.Path)
			return fmt.Errorf("failed to upsert node %s: %w", node.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk upsert: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Structure bulk upsert completed", "tenantId", tenantID, "count", len(nodes), "duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, tenantID)
	}

	r.readCache.Delete(tenantID)
	return nil
}

// BulkUpdate applies per-path change maps, reporting per-item failures.
func (r *Repository) BulkUpdate(ctx context.Context, tenantID string, updates []repositories.NodeUpdate) (*repositories.BulkResult, error) {
	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return nil, err
	}

	result := &repositories.BulkResult{}
	for _, update := range updates {
		if err := r.applyUpdate(ctx, db, update); err != nil {
			result.Failed = append(result.Failed, repositories.BulkFailure{Path: update.Path, Err: err})
			continue
		}
		result.Succeeded++
	}

	r.readCache.Delete(tenantID)
	return result, nil
}

func (r *Repository) applyUpdate(ctx context.Context, db *sql.DB, update repositories.NodeUpdate) error {
	sets := make([]string, 0, len(update.Changes)+1)
	args := make([]any, 0, len(update.Changes)+2)

	for key, value := range update.Changes {
		switch key {
		case "name":
			sets = append(sets, "name = ?")
			args = append(args, value)
		case "icon":
			sets = append(sets, "icon = ?")
			args = append(args, value)
		case "order":
			sets = append(sets, "sort_order = ?")
			args = append(args, value)
		case "parentId":
			sets = append(sets, "parent_id = ?")
			args = append(args, value)
		case "translations":
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode translations: %w", err)
			}
			sets = append(sets, "translations = ?")
			args = append(args, string(encoded))
		default:
			return fmt.Errorf("unsupported change field %q", key)
		}
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), update.Path)

	query := "UPDATE content_structure SET " + strings.Join(sets, ", ") + " WHERE path = ?"
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", update.Path, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("no node at path %s", update.Path)
	}
	return nil
}

// Delete removes the node at path.
func (r *Repository) Delete(ctx context.Context, tenantID, path string) error {
	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM content_structure WHERE path = ?`, path); err != nil {
		r.logger.Database().Error("Structure delete failed", "error", err.Error(), "path", path)
		return fmt.Errorf("failed to delete node %s: %w", path, err)
	}

	r.readCache.Delete(tenantID)
	return nil
}

// ReorderStructure assigns new sort orders in one transaction.
func (r *Repository) ReorderStructure(ctx context.Context, tenantID string, items []repositories.ReorderItem) error {
	if len(items) == 0 {
		return nil
	}

	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE content_structure SET sort_order = ?, updated_at = ? WHERE path = ?`,
			item.Order, now, item.Path); err != nil {
			return fmt.Errorf("failed to reorder node %s: %w", item.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}

	r.readCache.Delete(tenantID)
	return nil
}

// FixMismatchedNodeIDs rewrites documents whose persisted id differs from the
// node's authoritative id. Upsert-by-path cannot change a primary identifier,
// so the row is deleted and recreated under the correct id.
func (r *Repository) FixMismatchedNodeIDs(ctx context.Context, tenantID string, nodes []*content.ContentNode) error {
	if len(nodes) == 0 {
		return nil
	}

	db, tenantID, err := r.conn(tenantID)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin id repair: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	repaired := 0
	for _, node := range nodes {
		var storedID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM content_structure WHERE path = ?`, node.Path).Scan(&storedID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check node %s: %w", node.Path, err)
		}
		if storedID == node.ID {
			continue
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM content_structure WHERE path = ?`, node.Path); err != nil {
			return fmt.Errorf("failed to remove mismatched node %s: %w", node.Path, err)
		}
		args, err := nodeArgs(node, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO content_structure
			(path, id, parent_id, node_type, name, icon, sort_order, translations, collection_def, tenant_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
			return fmt.Errorf("failed to recreate node %s: %w", node.Path, err)
		}
		repaired++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit id repair: %w", err)
	}

	if repaired > 0 {
		r.logger.Database().Info("Repaired mismatched node ids", "tenantId", tenantID, "repaired", repaired)
		r.readCache.Delete(tenantID)
	}
	return nil
}

// InvalidateCategory drops the adapter-side structure read cache.
func (r *Repository) InvalidateCategory(ctx context.Context, tenantID string) error {
	_, tenantID, err := r.conn(tenantID)
	if err != nil {
		return err
	}
	r.readCache.Delete(tenantID)
	return nil
}

func nodeArgs(node *content.ContentNode, now string) ([]any, error) {
	var parentID any
	if node.ParentID != nil {
		parentID = *node.ParentID
	}
	var order any
	if node.Order != nil {
		order = *node.Order
	}

	var translations any
	if len(node.Translations) > 0 {
		encoded, err := json.Marshal(node.Translations)
		if err != nil {
			return nil, fmt.Errorf("failed to encode translations for %s: %w", node.Path, err)
		}
		translations = string(encoded)
	}

	var collectionDef any
	if node.Collection != nil {
		// Persist without the field list to keep the structure document small.
		encoded, err := json.Marshal(node.Collection.Stripped())
		if err != nil {
			return nil, fmt.Errorf("failed to encode collection for %s: %w", node.Path, err)
		}
		collectionDef = string(encoded)
	}

	created := node.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	return []any{
		node.Path, node.ID, parentID, string(node.NodeType), node.Name, node.Icon,
		order, translations, collectionDef, node.TenantID,
		created.Format(time.RFC3339), now,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*content.ContentNode, error) {
	var node content.ContentNode
	var nodeType string
	var parentID, icon, translations, collectionDef, tenantID sql.NullString
	var order sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&node.Path, &node.ID, &parentID, &nodeType, &node.Name, &icon,
		&order, &translations, &collectionDef, &tenantID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan structure row: %w", err)
	}

	node.NodeType = content.NodeType(nodeType)
	if parentID.Valid {
		node.ParentID = &parentID.String
	}
	if icon.Valid {
		node.Icon = icon.String
	}
	if order.Valid {
		o := int(order.Int64)
		node.Order = &o
	}
	if translations.Valid && translations.String != "" {
		if err := json.Unmarshal([]byte(translations.String), &node.Translations); err != nil {
			return nil, fmt.Errorf("failed to decode translations for %s: %w", node.Path, err)
		}
	}
	if collectionDef.Valid && collectionDef.String != "" {
		var schema content.CollectionSchema
		if err := json.Unmarshal([]byte(collectionDef.String), &schema); err != nil {
			return nil, fmt.Errorf("failed to decode collection for %s: %w", node.Path, err)
		}
		node.Collection = &schema
	}
	if tenantID.Valid {
		node.TenantID = tenantID.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		node.Created = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		node.Changed = t
	}

	return &node, nil
}

var (
	_ repositories.StructureRepository = (*Repository)(nil)
	_ repositories.IDRepairer          = (*Repository)(nil)
)
