package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore is a Store persisted as a single JSON file. It gives local
// runs the same versioned CAS surface a remote tracker adapter has, so
// the orchestrator core never knows which one it is talking to.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// fileRecord is the on-disk representation of one project.
type fileRecord struct {
	Labels  []string `json:"labels"`
	Version uint64   `json:"version"`
}

// NewFileStore creates a file-backed store at the given path, creating
// an empty file if none exists.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create tracker directory: %w", err)
	}
	s := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(map[string]fileRecord{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// load reads the full record map from disk.
func (s *FileStore) load() (map[string]fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	records := make(map[string]fileRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: corrupt tracker file: %v", ErrUnavailable, err)
	}
	return records, nil
}

// save writes the record map atomically via rename.
func (s *FileStore) save(records map[string]fileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracker records: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// List returns all project IDs in sorted order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Read returns the labels and version for a project.
func (s *FileStore) Read(ctx context.Context, projectID string) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, 0, err
	}
	rec, ok := records[projectID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return rec.Labels, rec.Version, nil
}

// Write replaces a project's labels iff the version still matches.
func (s *FileStore) Write(ctx context.Context, projectID string, labels []string, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := records[projectID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if rec.Version != version {
		return fmt.Errorf("%w: project %s version %d != %d", ErrStaleWrite, projectID, rec.Version, version)
	}
	records[projectID] = fileRecord{Labels: labels, Version: version + 1}
	return s.save(records)
}

// Create registers a new project. Creating an existing project is an error.
func (s *FileStore) Create(ctx context.Context, projectID string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[projectID]; ok {
		return fmt.Errorf("project %s already exists", projectID)
	}
	records[projectID] = fileRecord{Labels: labels, Version: 1}
	return s.save(records)
}
