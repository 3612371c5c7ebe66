package artifacts

import (
	"context"
	"sync"

	"github.com/tobiasfw/sagan/pkg/models"
)

// Memory is an in-process Store for tests and dry runs.
type Memory struct {
	mu  sync.RWMutex
	set map[string]bool
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{set: make(map[string]bool)}
}

// Put records or clears the presence of an artifact.
func (m *Memory) Put(projectID string, kind models.ArtifactKind, present bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set[cacheKey(projectID, kind)] = present
}

// Exists reports whether the artifact was recorded as present.
func (m *Memory) Exists(ctx context.Context, projectID string, kind models.ArtifactKind) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set[cacheKey(projectID, kind)], nil
}
