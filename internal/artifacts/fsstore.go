// Package artifacts answers artifact-existence queries for projects.
// The backing store is a directory tree maintained by external
// collaborators (writers, LaTeX compiler); this package only checks
// presence, it never creates or interprets artifact content.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tobiasfw/sagan/pkg/models"
)

// artifactFiles maps artifact kinds to their path under a project directory.
var artifactFiles = map[models.ArtifactKind]string{
	models.ArtifactDesign: "design.md",
	models.ArtifactPlan:   "plan.md",
	models.ArtifactCode:   "code",
	models.ArtifactPaper:  "paper.pdf",
}

// Store answers artifact-existence queries.
type Store interface {
	Exists(ctx context.Context, projectID string, kind models.ArtifactKind) (bool, error)
}

// FSStore checks artifact presence under <root>/<projectID>/.
// Results are cached; a filesystem watcher invalidates the cache for a
// project when anything under its directory changes.
type FSStore struct {
	root string

	mu      sync.Mutex
	cache   map[string]bool // "<projectID>/<kind>" -> exists
	watched map[string]bool // project dirs added to the watcher

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFSStore creates a store rooted at the given directory, creating it
// if needed. If the filesystem watcher cannot be started the store
// still works, it just stats on every query.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}

	s := &FSStore{
		root:    root,
		cache:   make(map[string]bool),
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - every query stats the filesystem
		return s, nil
	}
	s.watcher = watcher
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		s.watcher = nil
		return s, nil
	}
	go s.watch()

	return s, nil
}

// watch invalidates cached answers for a project when its directory changes.
func (s *FSStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			rel, err := filepath.Rel(s.root, event.Name)
			if err != nil {
				continue
			}
			s.invalidate(firstPathElement(rel))
		case <-s.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// firstPathElement returns the first element of a relative path.
func firstPathElement(rel string) string {
	for {
		dir := filepath.Dir(rel)
		if dir == "." || dir == string(filepath.Separator) {
			return rel
		}
		rel = dir
	}
}

// invalidate drops cached answers for the given project.
func (s *FSStore) invalidate(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range models.ArtifactKinds() {
		delete(s.cache, cacheKey(projectID, kind))
	}
}

func cacheKey(projectID string, kind models.ArtifactKind) string {
	return projectID + "/" + string(kind)
}

// Exists reports whether the artifact of the given kind exists for the
// project. Cached answers are served until the watcher sees a change
// under the project directory.
func (s *FSStore) Exists(ctx context.Context, projectID string, kind models.ArtifactKind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, ok := artifactFiles[kind]
	if !ok {
		return false, fmt.Errorf("unknown artifact kind %q", kind)
	}

	key := cacheKey(projectID, kind)
	s.mu.Lock()
	if s.watcher != nil {
		if exists, hit := s.cache[key]; hit {
			s.mu.Unlock()
			return exists, nil
		}
	}
	s.mu.Unlock()

	path := filepath.Join(s.root, projectID, name)
	info, err := os.Stat(path)
	var exists bool
	switch {
	case err == nil:
		// A code directory only counts when it has content.
		if kind == models.ArtifactCode && info.IsDir() {
			entries, rerr := os.ReadDir(path)
			if rerr != nil {
				return false, fmt.Errorf("read code directory: %w", rerr)
			}
			exists = len(entries) > 0
		} else {
			exists = true
		}
	case os.IsNotExist(err):
		exists = false
	default:
		return false, fmt.Errorf("stat artifact %s: %w", path, err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.cache[key] = exists
		dir := filepath.Join(s.root, projectID)
		if !s.watched[dir] {
			if werr := s.watcher.Add(dir); werr == nil {
				s.watched[dir] = true
			}
		}
	}
	s.mu.Unlock()

	return exists, nil
}

// Write stores generated artifact content at the kind's path under the
// project directory. Code artifacts land inside the code directory.
func (s *FSStore) Write(ctx context.Context, projectID string, kind models.ArtifactKind, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := artifactFiles[kind]
	if !ok {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}

	path := filepath.Join(s.root, projectID, name)
	if kind == models.ArtifactCode {
		path = filepath.Join(path, "main.py")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}

	s.invalidate(projectID)
	return nil
}

// Close stops the filesystem watcher.
func (s *FSStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
