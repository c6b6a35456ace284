package services

import (
	"sort"
	"sync"
	"time"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/entities/content"
	domainservices "github.com/SveltyCMS/SveltyCMS-sub004/internal/domain/services"
	"github.com/SveltyCMS/SveltyCMS-sub004/pkg/config"
)

// Snapshot is one point-in-time copy of both indexes.
type Snapshot struct {
	ID        string
	Nodes     map[string]*content.ContentNode
	Paths     map[string]string
	CreatedAt time.Time
}

// StructureStore holds the two synchronized in-memory indexes that are the
// running process's source of truth: nodes by id, and path -> id. Every
// mutation updates both indexes in the same critical section, and bumps the
// monotonic version counter clients poll for change detection.
type StructureStore struct {
	mu        sync.RWMutex
	byID      map[string]*content.ContentNode
	byPath    map[string]string
	version   int64
	snapshots []*Snapshot
}

// NewStructureStore creates an empty store.
func NewStructureStore() *StructureStore {
	return &StructureStore{
		byID:   make(map[string]*content.ContentNode),
		byPath: make(map[string]string),
	}
}

// The version is wall-clock-derived so it stays meaningful across restarts,
// and forced strictly upward when the clock has not advanced.
func (s *StructureStore) bumpVersionLocked() {
	now := time.Now().UnixMilli()
	if now <= s.version {
		now = s.version + 1
	}
	s.version = now
}

// Version returns the current structure version.
func (s *StructureStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Touch bumps the version without changing the indexes. Invalidations call
// this so long-poll clients observe the change even when their own cache
// entry was untouched.
func (s *StructureStore) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpVersionLocked()
}

// Replace rebuilds both indexes from a complete node list. Readers never see
// a partially populated state.
func (s *StructureStore) Replace(nodes []*content.ContentNode) {
	byID := make(map[string]*content.ContentNode, len(nodes))
	byPath := make(map[string]string, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		byPath[n.Path] = n.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = byID
	s.byPath = byPath
	s.bumpVersionLocked()
}

// Upsert patches both indexes with the given nodes in one critical section.
// A node replacing an existing id with a different path drops the stale path
// entry, and a node landing on an occupied path displaces the node that held
// it, so path -> id stays a bijection.
func (s *StructureStore) Upsert(nodes []*content.ContentNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		if prev, ok := s.byID[n.ID]; ok && prev.Path != n.Path {
			delete(s.byPath, prev.Path)
		}
		if displaced, ok := s.byPath[n.Path]; ok && displaced != n.ID {
			delete(s.byID, displaced)
		}
		s.byID[n.ID] = n
		s.byPath[n.Path] = n.ID
	}
	s.bumpVersionLocked()
}

// Remove deletes the node at path from both indexes. Returns false when no
// node exists at that path.
func (s *StructureStore) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPath[path]
	if !ok {
		return false
	}
	delete(s.byPath, path)
	delete(s.byID, id)
	s.bumpVersionLocked()
	return true
}

// Get resolves a node by id, falling back to the normalized form so
// dash-bearing and dash-free spellings reach the same node.
func (s *StructureStore) Get(id string) (*content.ContentNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byID[id]; ok {
		return n, true
	}
	want := domainservices.NormalizeID(id)
	for candidate, n := range s.byID {
		if domainservices.NormalizeID(candidate) == want {
			return n, true
		}
	}
	return nil, false
}

// GetByPath resolves a node by its cleaned path.
func (s *StructureStore) GetByPath(path string) (*content.ContentNode, bool) {
	path = domainservices.CleanPath(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return nil, false
	}
	n, ok := s.byID[id]
	return n, ok
}

// Nodes returns the flat node list sorted by path. The returned pointers are
// live index entries; readers must not mutate them.
func (s *StructureStore) Nodes() []*content.ContentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]*content.ContentNode, 0, len(s.byID))
	for _, n := range s.byID {
		nodes = append(nodes, n)
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return nodes
}

// Len returns the node count.
func (s *StructureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IndexCopies returns shallow copies of both indexes for pure projections
// (breadcrumbs, descendant walks, validation).
func (s *StructureStore) IndexCopies() (map[string]*content.ContentNode, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]*content.ContentNode, len(s.byID))
	for id, n := range s.byID {
		byID[id] = n
	}
	byPath := make(map[string]string, len(s.byPath))
	for p, id := range s.byPath {
		byPath[p] = id
	}
	return byID, byPath
}

// Validate reports structural invariant violations across both indexes.
func (s *StructureStore) Validate() []domainservices.StructureIssue {
	byID, byPath := s.IndexCopies()
	return domainservices.ValidateStructure(byID, byPath)
}

// CreateSnapshot deep-copies both indexes into the bounded ring. When the
// ring is full the oldest snapshot is evicted.
func (s *StructureStore) CreateSnapshot(id string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		ID:        id,
		Nodes:     make(map[string]*content.ContentNode, len(s.byID)),
		Paths:     make(map[string]string, len(s.byPath)),
		CreatedAt: time.Now().UTC(),
	}
	for nodeID, n := range s.byID {
		snap.Nodes[nodeID] = n.Clone()
	}
	for p, nodeID := range s.byPath {
		snap.Paths[p] = nodeID
	}

	s.snapshots = append(s.snapshots, snap)
	if len(s.snapshots) > config.SnapshotRingSize {
		s.snapshots = s.snapshots[len(s.snapshots)-config.SnapshotRingSize:]
	}
	return snap
}

// RollbackToSnapshot atomically replaces both live indexes with the
// snapshot's copies and bumps the version. The snapshot itself keeps owning
// its copies, so a second rollback to the same id still works.
func (s *StructureStore) RollbackToSnapshot(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap *Snapshot
	for _, candidate := range s.snapshots {
		if candidate.ID == id {
			snap = candidate
			break
		}
	}
	if snap == nil {
		return false
	}

	byID := make(map[string]*content.ContentNode, len(snap.Nodes))
	for nodeID, n := range snap.Nodes {
		byID[nodeID] = n.Clone()
	}
	byPath := make(map[string]string, len(snap.Paths))
	for p, nodeID := range snap.Paths {
		byPath[p] = nodeID
	}

	s.byID = byID
	s.byPath = byPath
	s.bumpVersionLocked()
	return true
}

// SnapshotIDs lists the retained snapshots, oldest first.
func (s *StructureStore) SnapshotIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		ids = append(ids, snap.ID)
	}
	return ids
}
