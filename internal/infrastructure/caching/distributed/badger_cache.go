// Package distributed provides the persistent cache adapter used to warm
// structure state across restarts. Entries carry a native TTL so stale
// snapshots expire without a sweeper.
package distributed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// BadgerCache implements the distributed cache port over an embedded badger
// store. Keys are namespaced per tenant.
type BadgerCache struct {
	db     *badger.DB
	logger *logging.ChanneledLogger
	mu     sync.Mutex
	open   bool
}

// NewBadgerCache creates an uninitialized cache handle. Initialize must be
// called before Get/Set.
func NewBadgerCache(logger *logging.ChanneledLogger) *BadgerCache {
	return &BadgerCache{logger: logger}
}

// Initialize opens the on-disk store. Safe to call more than once.
func (c *BadgerCache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}

	if err := os.MkdirAll(config.DistributedCacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	opts := badger.DefaultOptions(config.DistributedCacheDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open distributed cache: %w", err)
	}

	c.db = db
	c.open = true
	c.logger.Cache().Info("Distributed cache opened", "dir", config.DistributedCacheDir)
	return nil
}

// Get reads a tenant-scoped value. The second return is false on miss or
// expiry.
func (c *BadgerCache) Get(ctx context.Context, key, tenantID string) ([]byte, bool, error) {
	if c.db == nil {
		return nil, false, nil
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(key, tenantID))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a tenant-scoped value with a TTL. A zero TTL stores the entry
// without expiry.
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tenantID string) error {
	if c.db == nil {
		return fmt.Errorf("distributed cache not initialized")
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(key, tenantID), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying store.
func (c *BadgerCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}
	c.open = false
	return c.db.Close()
}

func cacheKey(key, tenantID string) []byte {
	return []byte(tenantID + ":" + key)
}
