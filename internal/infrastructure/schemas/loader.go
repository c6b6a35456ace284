// Package schemas loads compiled collection definitions from disk. Schema
// files are the source of truth the reconciler merges against persisted
// structure nodes.
package schemas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	domainservices "github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// FSLoader reads collection schemas from the compiled schema directory.
// The default tenant reads the directory root; other tenants read a
// tenant-scoped subdirectory.
type FSLoader struct {
	baseDir string
	logger  *logging.ChanneledLogger
}

// NewFSLoader creates a schema loader rooted at the configured schema dir.
func NewFSLoader(logger *logging.ChanneledLogger) *FSLoader {
	return &FSLoader{baseDir: config.SchemaDir, logger: logger}
}

// LoadSchemas reads every *.json schema under the tenant's schema directory.
// Files that fail to parse are skipped with a warning so one broken schema
// cannot block initialization.
func (l *FSLoader) LoadSchemas(ctx context.Context, tenantID string) ([]*content.CollectionSchema, error) {
	dir := l.baseDir
	if tenantID != "" && tenantID != config.DefaultTenantID {
		dir = filepath.Join(l.baseDir, tenantID)
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}

	var schemas []*content.CollectionSchema
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}

		var schema content.CollectionSchema
		if err := json.Unmarshal(data, &schema); err != nil {
			l.logger.Content().Warn("Skipping unparseable schema file", "file", entry.Name(), "error", err.Error())
			continue
		}
		if schema.ID == "" || schema.Name == "" {
			l.logger.Content().Warn("Skipping schema without id or name", "file", entry.Name())
			continue
		}

		schema.Path = domainservices.CleanPath(schema.Path)
		if schema.Path == "" || schema.Path == "/" {
			schema.Path = "/" + schema.Name
		}
		schema.TenantID = tenantID
		schemas = append(schemas, &schema)
	}

	l.logger.Content().Debug("Schemas loaded", "tenantId", tenantID, "count", len(schemas), "dir", dir)
	return schemas, nil
}
