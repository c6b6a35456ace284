// Package config provides centralized default values for the content structure core
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Tenant / Storage Configuration
	DefaultTenantID string
	SchemaDir       string
	SQLitePath      string
	TursoDatabase   string
	TursoToken      string
	SetupMode       bool

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration
	StorageCallTimeout       time.Duration

	// Cache TTL Configuration
	FirstCollectionTTL time.Duration
	CollectionTTL      time.Duration
	CollectionStatsTTL time.Duration
	StructureCacheTTL  time.Duration

	// Distributed Cache
	DistributedCacheDir string

	// Initialization
	InitMaxAttempts     int
	InitBackoffInitial  time.Duration
	InitBackoffMax      time.Duration

	// Structure
	SnapshotRingSize int
	DefaultNodeOrder int

	// Cleanup Intervals
	CleanupInterval time.Duration
	CleanupVerbose  bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Tenant / Storage Configuration
	DefaultTenantID = getEnvString("DEFAULT_TENANT_ID", "default")
	SchemaDir = getEnvString("SCHEMA_DIR", "config/collections")
	SQLitePath = getEnvString("SQLITE_PATH", "data/structure.db")
	TursoDatabase = getEnvString("TURSO_DATABASE_URL", "")
	TursoToken = getEnvString("TURSO_AUTH_TOKEN", "")
	SetupMode = getEnvString("SETUP_MODE", "false") == "true"

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)
	StorageCallTimeout = getEnvDuration("STORAGE_CALL_TIMEOUT", 10*time.Second)

	// Cache TTL Configuration
	FirstCollectionTTL = getEnvDuration("FIRST_COLLECTION_TTL", 60*time.Second)
	CollectionTTL = getEnvDuration("COLLECTION_TTL", 20*time.Second)
	CollectionStatsTTL = getEnvDuration("COLLECTION_STATS_TTL", 60*time.Second)
	StructureCacheTTL = getEnvDuration("STRUCTURE_CACHE_TTL", 5*time.Minute)

	// Distributed Cache
	DistributedCacheDir = getEnvString("DISTRIBUTED_CACHE_DIR", "data/cache")

	// Initialization
	InitMaxAttempts = getEnvInt("INIT_MAX_ATTEMPTS", 3)
	InitBackoffInitial = getEnvDuration("INIT_BACKOFF_INITIAL", time.Second)
	InitBackoffMax = getEnvDuration("INIT_BACKOFF_MAX", 5*time.Second)

	// Structure
	SnapshotRingSize = getEnvInt("SNAPSHOT_RING_SIZE", 5)
	DefaultNodeOrder = getEnvInt("DEFAULT_NODE_ORDER", 999)

	// Cleanup Intervals
	CleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Minute)
	CleanupVerbose = getEnvString("CACHE_CLEANUP_VERBOSE", "true") == "true"
}
