package tenant

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// Config holds the per-tenant storage configuration.
type Config struct {
	TenantID      string
	SQLitePath    string
	TursoDatabase string
	TursoToken    string
}

// LoadTenantConfig derives the storage configuration for one tenant. The
// default tenant uses the configured paths directly; other tenants get a
// database file scoped by tenant id.
func LoadTenantConfig(tenantID string) (*Config, error) {
	if strings.ContainsAny(tenantID, "/\\..") {
		return nil, fmt.Errorf("invalid tenant id %q", tenantID)
	}

	cfg := &Config{
		TenantID:      tenantID,
		SQLitePath:    config.SQLitePath,
		TursoDatabase: config.TursoDatabase,
		TursoToken:    config.TursoToken,
	}

	if tenantID != config.DefaultTenantID {
		dir := filepath.Dir(config.SQLitePath)
		cfg.SQLitePath = filepath.Join(dir, tenantID+".db")
		// Turso credentials are per-deployment; non-default tenants stay on
		// local SQLite unless provisioned separately.
		cfg.TursoDatabase = ""
		cfg.TursoToken = ""
	}

	return cfg, nil
}
