package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and aggregates operation metrics.
type Tracker struct {
	markers    map[string]*Marker
	maxMarkers int
	mu         sync.RWMutex
	started    time.Time
}

// NewTracker creates a new performance tracker.
func NewTracker() *Tracker {
	return &Tracker{
		markers:    make(map[string]*Marker),
		maxMarkers: 10000,
		started:    time.Now(),
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	marker := &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Success:   true,
		owner:     t,
	}

	markerID := fmt.Sprintf("%s_%s_%d", tenantID, operation, time.Now().UnixNano())

	t.mu.Lock()
	if len(t.markers) >= t.maxMarkers {
		t.evictOldestLocked()
	}
	t.markers[markerID] = marker
	t.mu.Unlock()

	return marker
}

func (t *Tracker) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, m := range t.markers {
		if oldestID == "" || m.StartTime.Before(oldest) {
			oldestID = id
			oldest = m.StartTime
		}
	}
	if oldestID != "" {
		delete(t.markers, oldestID)
	}
}

// GetMetrics returns completed markers for a tenant, newest unbounded.
func (t *Tracker) GetMetrics(tenantID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Marker
	for _, m := range t.markers {
		if m.TenantID == tenantID && m.Completed {
			out = append(out, m.copyLocked())
		}
	}
	return out
}

// GetActiveOperations returns markers still in flight for a tenant.
func (t *Tracker) GetActiveOperations(tenantID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Marker
	for _, m := range t.markers {
		if m.TenantID == tenantID && !m.Completed {
			out = append(out, m.copyLocked())
		}
	}
	return out
}

// GetOverallStats aggregates totals across all tenants.
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var completed, failed, active int
	var totalDuration time.Duration
	var hits, misses int
	for _, m := range t.markers {
		if !m.Completed {
			active++
			continue
		}
		completed++
		totalDuration += m.Duration
		hits += m.CacheHits
		misses += m.CacheMisses
		if !m.Success {
			failed++
		}
	}

	stats := map[string]any{
		"completedOperations": completed,
		"failedOperations":    failed,
		"activeOperations":    active,
		"cacheHits":           hits,
		"cacheMisses":         misses,
		"uptime":              time.Since(t.started).String(),
	}
	if completed > 0 {
		stats["avgDuration"] = (totalDuration / time.Duration(completed)).String()
	}
	return stats
}

// Cleanup drops completed markers older than an hour.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for id, m := range t.markers {
		if m.Completed && m.EndTime.Before(cutoff) {
			delete(t.markers, id)
		}
	}
}
