// Package performance provides operation markers and metrics aggregation for
// structure operations with multi-tenant support.
package performance

import "time"

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation   string         `json:"operation"` // e.g. "structure:initialize", "collection:get"
	TenantID    string         `json:"tenantId"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     time.Time      `json:"endTime"`
	Duration    time.Duration  `json:"duration"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CacheHits   int            `json:"cacheHits"`
	CacheMisses int            `json:"cacheMisses"`
	Completed   bool           `json:"completed"`

	// owner serializes mutation against the tracker's reads. Markers built
	// outside a tracker are single-goroutine and skip locking.
	owner *Tracker
}

func (m *Marker) lock() {
	if m.owner != nil {
		m.owner.mu.Lock()
	}
}

func (m *Marker) unlock() {
	if m.owner != nil {
		m.owner.mu.Unlock()
	}
}

// Complete marks the operation as finished and records its duration.
func (m *Marker) Complete() {
	m.lock()
	defer m.unlock()
	if m.Completed {
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.lock()
	defer m.unlock()
	m.Success = success
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err == nil {
		return
	}
	m.lock()
	defer m.unlock()
	m.Error = err.Error()
	m.Success = false
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	m.lock()
	defer m.unlock()
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// AddCacheHit increments the cache hit counter
func (m *Marker) AddCacheHit() {
	m.lock()
	defer m.unlock()
	m.CacheHits++
}

// AddCacheMiss increments the cache miss counter
func (m *Marker) AddCacheMiss() {
	m.lock()
	defer m.unlock()
	m.CacheMisses++
}

// copyLocked detaches a snapshot of the marker; the caller holds the
// tracker's lock.
func (m *Marker) copyLocked() Marker {
	out := *m
	out.owner = nil
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
