// Package tenant provides database abstraction for multi-tenant support.
package tenant

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var (
	connectionPools = make(map[string]*sql.DB)
	poolMutex       = &sync.RWMutex{}
)

// Database wraps one tenant's structure database connection.
type Database struct {
	Conn     *sql.DB
	TenantID string
	UseTurso bool
	isPooled bool
}

// NewDatabase opens (or reuses) the database connection for a tenant. Remote
// libsql is preferred when configured; local SQLite otherwise.
func NewDatabase(cfg *Config) (*Database, error) {
	poolKey := getPoolKey(cfg)

	poolMutex.Lock()
	defer poolMutex.Unlock()

	if pooledConn, exists := connectionPools[poolKey]; exists {
		if err := pooledConn.Ping(); err == nil {
			return &Database{
				Conn:     pooledConn,
				TenantID: cfg.TenantID,
				UseTurso: cfg.TursoDatabase != "",
				isPooled: true,
			}, nil
		}
		pooledConn.Close()
		delete(connectionPools, poolKey)
	}

	var conn *sql.DB
	var err error
	var useTurso bool

	if cfg.TursoDatabase != "" && cfg.TursoToken != "" {
		connStr := cfg.TursoDatabase + "?authToken=" + cfg.TursoToken
		conn, err = sql.Open("libsql", connStr)
		if err != nil {
			return nil, fmt.Errorf("tenant %s degraded: turso connection failed: %w", cfg.TenantID, err)
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("tenant %s degraded: turso ping failed: %w", cfg.TenantID, err)
		}
		useTurso = true
	} else {
		dbDir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		conn, err = sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite connection failed: %w", err)
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite ping failed: %w", err)
		}
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)

	connectionPools[poolKey] = conn

	return &Database{
		Conn:     conn,
		TenantID: cfg.TenantID,
		UseTurso: useTurso,
		isPooled: false,
	}, nil
}

// GetConnectionInfo returns connection information for logging.
func (d *Database) GetConnectionInfo() string {
	if d.UseTurso {
		return fmt.Sprintf("turso (tenant: %s)", d.TenantID)
	}
	return fmt.Sprintf("sqlite3 (tenant: %s)", d.TenantID)
}

// Close releases the connection unless it is shared through the pool.
func (d *Database) Close() error {
	if d.isPooled || d.Conn == nil {
		return nil
	}
	return d.Conn.Close()
}

// ClosePools closes every pooled connection. Called on shutdown.
func ClosePools() {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	for key, conn := range connectionPools {
		conn.Close()
		delete(connectionPools, key)
	}
}

func getPoolKey(cfg *Config) string {
	if cfg.TursoDatabase != "" {
		return "turso:" + cfg.TursoDatabase
	}
	return "sqlite:" + cfg.SQLitePath
}
