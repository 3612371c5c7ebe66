package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store implementation with per-project
// version counters. It backs local runs and tests; the CAS semantics
// match what a remote tracker adapter must provide.
type MemoryStore struct {
	mu          sync.RWMutex
	labels      map[string][]string
	versions    map[string]uint64
	unavailable bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		labels:   make(map[string][]string),
		versions: make(map[string]uint64),
	}
}

// SetUnavailable toggles simulated outage. While unavailable every
// operation returns ErrUnavailable.
func (s *MemoryStore) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = down
}

// List returns all project IDs in sorted order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, ErrUnavailable
	}
	ids := make([]string, 0, len(s.labels))
	for id := range s.labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Read returns the labels and version for a project.
func (s *MemoryStore) Read(ctx context.Context, projectID string) ([]string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, 0, ErrUnavailable
	}
	labels, ok := s.labels[projectID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out, s.versions[projectID], nil
}

// Write replaces a project's labels iff the version still matches.
func (s *MemoryStore) Write(ctx context.Context, projectID string, labels []string, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrUnavailable
	}
	if _, ok := s.labels[projectID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if s.versions[projectID] != version {
		return fmt.Errorf("%w: project %s version %d != %d", ErrStaleWrite, projectID, s.versions[projectID], version)
	}
	stored := make([]string, len(labels))
	copy(stored, labels)
	s.labels[projectID] = stored
	s.versions[projectID]++
	return nil
}

// Create registers a new project. Creating an existing project is an error.
func (s *MemoryStore) Create(ctx context.Context, projectID string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrUnavailable
	}
	if _, ok := s.labels[projectID]; ok {
		return fmt.Errorf("project %s already exists", projectID)
	}
	stored := make([]string, len(labels))
	copy(stored, labels)
	s.labels[projectID] = stored
	s.versions[projectID] = 1
	return nil
}
