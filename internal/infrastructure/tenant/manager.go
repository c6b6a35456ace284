package tenant

import (
	"fmt"
	"sync"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
)

// Context holds tenant-specific state: configuration and the database handle
// the structure repository operates on.
type Context struct {
	TenantID string
	Config   *Config
	Database *Database
	Status   string
}

// Close cleans up the tenant context.
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// IsActive returns true if the tenant is active.
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// Manager coordinates tenant resolution and context creation.
type Manager struct {
	contexts       map[string]*Context
	contextMutexes sync.Map
	globalMutex    sync.RWMutex
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a new tenant manager.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	return &Manager{
		contexts: make(map[string]*Context),
		logger:   logger,
	}
}

// GetContext creates or retrieves the context for a tenant id.
func (m *Manager) GetContext(tenantID string) (*Context, error) {
	tenantID = ResolveTenantID(tenantID)

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[tenantID]; exists {
		m.globalMutex.RUnlock()
		if ctx.Database != nil && ctx.Database.Conn != nil {
			return ctx, nil
		}
	} else {
		m.globalMutex.RUnlock()
	}

	tenantMutexInterface, _ := m.contextMutexes.LoadOrStore(tenantID, &sync.Mutex{})
	tenantMutex := tenantMutexInterface.(*sync.Mutex)

	tenantMutex.Lock()
	defer tenantMutex.Unlock()

	m.globalMutex.RLock()
	if ctx, exists := m.contexts[tenantID]; exists && ctx.Database != nil && ctx.Database.Conn != nil {
		m.globalMutex.RUnlock()
		return ctx, nil
	}
	m.globalMutex.RUnlock()

	return m.createContext(tenantID)
}

func (m *Manager) createContext(tenantID string) (*Context, error) {
	cfg, err := LoadTenantConfig(tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}

	db, err := NewDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	ctx := &Context{
		TenantID: tenantID,
		Config:   cfg,
		Database: db,
		Status:   "active",
	}

	m.globalMutex.Lock()
	m.contexts[tenantID] = ctx
	m.globalMutex.Unlock()

	m.logger.Tenant().Info("Tenant context created", "tenantId", tenantID, "database", db.GetConnectionInfo())
	return ctx, nil
}

// PreActivateAllTenants opens connections for every registered tenant during
// startup so first requests never pay connection latency.
func (m *Manager) PreActivateAllTenants() error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry for pre-activation: %w", err)
	}

	var failedTenants []string
	for tenantID := range registry.Tenants {
		ctx, err := m.createContext(tenantID)
		if err != nil {
			m.logger.Tenant().Error("Tenant pre-activation failed", "tenantId", tenantID, "error", err.Error())
			failedTenants = append(failedTenants, tenantID)
			continue
		}
		if err := ctx.Database.Conn.Ping(); err != nil {
			failedTenants = append(failedTenants, tenantID)
		}
	}

	if len(failedTenants) > 0 {
		return fmt.Errorf("pre-activation failed for tenants: %v", failedTenants)
	}
	return nil
}

// GetActiveTenantIDs lists tenants with live contexts.
func (m *Manager) GetActiveTenantIDs() []string {
	m.globalMutex.RLock()
	defer m.globalMutex.RUnlock()
	ids := make([]string, 0, len(m.contexts))
	for id, ctx := range m.contexts {
		if ctx.IsActive() {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetLogger returns the logger for middleware access.
func (m *Manager) GetLogger() *logging.ChanneledLogger {
	return m.logger
}

// Close cleans up all tenant contexts.
func (m *Manager) Close() error {
	m.globalMutex.Lock()
	defer m.globalMutex.Unlock()

	for _, ctx := range m.contexts {
		ctx.Close()
	}
	m.contexts = make(map[string]*Context)
	ClosePools()
	return nil
}
