package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tobiasfw/sagan/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sagan.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_AppliedReviews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seen, err := db.Applied(ctx, "proj-1|alice|123")
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if seen {
		t.Error("unseen key should not be applied")
	}

	if err := db.MarkApplied(ctx, "proj-1|alice|123"); err != nil {
		t.Fatalf("MarkApplied() error = %v", err)
	}
	seen, err = db.Applied(ctx, "proj-1|alice|123")
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if !seen {
		t.Error("marked key should be applied")
	}

	// Marking twice is a no-op, not an error.
	if err := db.MarkApplied(ctx, "proj-1|alice|123"); err != nil {
		t.Errorf("second MarkApplied() error = %v", err)
	}

	seen, err = db.Applied(ctx, "proj-2|alice|123")
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if seen {
		t.Error("a different project's key must not be applied")
	}
}

func TestDB_Transitions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	steps := []models.StageTransition{
		{ProjectID: "proj-1", From: models.StageBacklog, To: models.StageReady, TriggerScore: 5.5, At: base},
		{ProjectID: "proj-1", From: models.StageReady, To: models.StageInProgress, TriggerScore: 5.0, At: base.Add(time.Hour)},
		{ProjectID: "proj-2", From: models.StageBacklog, To: models.StageReady, TriggerScore: 6.0, At: base.Add(2 * time.Hour)},
	}
	for _, s := range steps {
		if err := db.Record(ctx, s); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := db.Transitions(ctx, "proj-1", 0)
	if err != nil {
		t.Fatalf("Transitions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	// Newest first.
	if got[0].From != models.StageReady || got[0].To != models.StageInProgress {
		t.Errorf("first record = %s -> %s, want ready -> in_progress", got[0].From, got[0].To)
	}
	if got[1].TriggerScore != 5.5 {
		t.Errorf("trigger score = %g, want 5.5", got[1].TriggerScore)
	}

	limited, err := db.Transitions(ctx, "proj-1", 1)
	if err != nil {
		t.Fatalf("Transitions() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d transitions with limit 1", len(limited))
	}

	other, err := db.Transitions(ctx, "proj-3", 0)
	if err != nil {
		t.Fatalf("Transitions() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("unknown project returned %d transitions", len(other))
	}
}

func TestDB_MigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sagan.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.MarkApplied(context.Background(), "key"); err != nil {
		t.Fatalf("MarkApplied() error = %v", err)
	}
	first.Close()

	// Reopening must not re-run migrations or lose data.
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	seen, err := second.Applied(context.Background(), "key")
	if err != nil {
		t.Fatalf("Applied() error = %v", err)
	}
	if !seen {
		t.Error("data lost across reopen")
	}
}
