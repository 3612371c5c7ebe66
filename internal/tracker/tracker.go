// Package tracker models the external issue tracker as a versioned
// label store. The tracker is shared mutable state with no transaction
// guarantee, so every write is a compare-and-swap against the version
// token returned by the matching read.
package tracker

import (
	"context"
	"errors"
)

// Common errors for tracker access.
var (
	// ErrStaleWrite indicates the store's version changed between read
	// and write. The mutation is discarded and recomputed against fresh
	// state on the next cycle, never force-applied.
	ErrStaleWrite = errors.New("stale write: tracker version changed")
	// ErrUnavailable indicates the tracker could not be reached.
	// The affected project is skipped for the cycle.
	ErrUnavailable = errors.New("tracker unavailable")
	// ErrNotFound indicates the project does not exist in the tracker.
	ErrNotFound = errors.New("project not found in tracker")
)

// Store is the versioned key/attribute view of the external tracker.
// Read returns the label set plus an opaque version token; Write only
// succeeds when the token still matches, otherwise ErrStaleWrite.
type Store interface {
	// List returns the IDs of all tracked projects.
	List(ctx context.Context) ([]string, error)
	// Read returns a project's labels and the current version token.
	Read(ctx context.Context, projectID string) ([]string, uint64, error)
	// Write replaces a project's labels iff version still matches.
	Write(ctx context.Context, projectID string, labels []string, version uint64) error
	// Create registers a new project with the given labels.
	Create(ctx context.Context, projectID string, labels []string) error
}
