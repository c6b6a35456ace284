// Package tenant manages tenant-specific configurations and context,
// isolating multi-tenancy logic from the rest of the application.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// TenantInfo describes one registered tenant.
type TenantInfo struct {
	Status    string    `json:"status"` // "active" | "reserved" | "inactive"
	CreatedAt time.Time `json:"createdAt"`
}

// Registry is the on-disk record of all known tenants.
type Registry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

func registryPath() string {
	return filepath.Join("config", "tenants.json")
}

// LoadTenantRegistry reads the tenant registry, returning an empty registry
// when the file does not exist yet.
func LoadTenantRegistry() (*Registry, error) {
	data, err := os.ReadFile(registryPath())
	if os.IsNotExist(err) {
		return &Registry{Tenants: make(map[string]TenantInfo)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}
	if registry.Tenants == nil {
		registry.Tenants = make(map[string]TenantInfo)
	}
	return &registry, nil
}

// RegisterTenant adds a tenant to the registry with active status.
func RegisterTenant(tenantID string) error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	registry.Tenants[tenantID] = TenantInfo{Status: "active", CreatedAt: time.Now().UTC()}

	if err := os.MkdirAll(filepath.Dir(registryPath()), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tenant registry: %w", err)
	}
	if err := os.WriteFile(registryPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write tenant registry: %w", err)
	}
	return nil
}

// ResolveTenantID maps an empty tenant id to the configured default.
func ResolveTenantID(tenantID string) string {
	if tenantID == "" {
		return config.DefaultTenantID
	}
	return tenantID
}
