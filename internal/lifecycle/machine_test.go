package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tobiasfw/sagan/internal/artifacts"
	"github.com/tobiasfw/sagan/pkg/models"
)

// memLog is an in-memory transition log for tests.
type memLog struct {
	records []models.StageTransition
	fail    error
}

func (l *memLog) Record(ctx context.Context, t models.StageTransition) error {
	if l.fail != nil {
		return l.fail
	}
	l.records = append(l.records, t)
	return nil
}

func newMachine(t *testing.T) (*Machine, *artifacts.Memory, *memLog) {
	t.Helper()
	store := artifacts.NewMemory()
	tlog := &memLog{}
	m := NewMachine(store, tlog)
	m.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return m, store, tlog
}

func TestMachine_AdvanceAtThreshold(t *testing.T) {
	m, store, tlog := newMachine(t)
	store.Put("proj-1", models.ArtifactDesign, true)

	// 4.5 plus one positive human review crosses the 5.0 gate exactly.
	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 5.5}

	advanced, to, err := m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("TryAdvance() error = %v", err)
	}
	if !advanced || to != models.StageReady {
		t.Fatalf("TryAdvance() = (%v, %q), want advance to ready", advanced, to)
	}
	if p.Stage != models.StageReady {
		t.Errorf("stage = %q, want ready", p.Stage)
	}
	if p.Score != 0 {
		t.Errorf("score = %g, want reset to 0 in the new stage", p.Score)
	}

	if len(tlog.records) != 1 {
		t.Fatalf("transition log has %d records, want 1", len(tlog.records))
	}
	rec := tlog.records[0]
	if rec.From != models.StageBacklog || rec.To != models.StageReady {
		t.Errorf("logged transition %s -> %s, want backlog -> ready", rec.From, rec.To)
	}
	if rec.TriggerScore != 5.5 {
		t.Errorf("trigger score = %g, want the pre-reset score 5.5", rec.TriggerScore)
	}
}

func TestMachine_HoldsBelowThreshold(t *testing.T) {
	m, store, tlog := newMachine(t)
	store.Put("proj-1", models.ArtifactDesign, true)

	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 4.9}
	advanced, _, err := m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("TryAdvance() error = %v", err)
	}
	if advanced {
		t.Error("project below threshold must hold")
	}
	if p.Stage != models.StageBacklog || p.Score != 4.9 {
		t.Errorf("held project mutated: stage %q score %g", p.Stage, p.Score)
	}
	if len(tlog.records) != 0 {
		t.Error("no transition may be logged while holding")
	}
}

func TestMachine_HoldsWithoutArtifact(t *testing.T) {
	m, _, tlog := newMachine(t)

	// Score is far past the gate but the design document is missing.
	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 9.0}
	advanced, _, err := m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("TryAdvance() error = %v", err)
	}
	if advanced {
		t.Error("project without required artifact must hold")
	}
	if len(tlog.records) != 0 {
		t.Error("no transition may be logged while holding")
	}
}

func TestMachine_NeverSkipsStages(t *testing.T) {
	m, store, tlog := newMachine(t)
	for _, kind := range models.ArtifactKinds() {
		store.Put("proj-1", kind, true)
	}

	// A huge score advances exactly one stage per evaluation.
	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 100}
	advanced, to, err := m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("TryAdvance() error = %v", err)
	}
	if !advanced || to != models.StageReady {
		t.Fatalf("TryAdvance() = (%v, %q), want single step to ready", advanced, to)
	}
	if len(tlog.records) != 1 {
		t.Errorf("one evaluation logged %d transitions, want 1", len(tlog.records))
	}

	// After the reset the score is 0, so the next gate holds.
	advanced, _, err = m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("second TryAdvance() error = %v", err)
	}
	if advanced {
		t.Error("score reset must stop a second consecutive advance")
	}
}

func TestMachine_InReviewGateNeedsPaper(t *testing.T) {
	m, store, _ := newMachine(t)
	store.Put("proj-1", models.ArtifactPaper, true)
	store.Put("proj-1", models.ArtifactCode, true)

	p := &models.Project{ID: "proj-1", Stage: models.StageInProgress, Score: 1.0}
	advanced, to, err := m.TryAdvance(context.Background(), p)
	if err != nil {
		t.Fatalf("TryAdvance() error = %v", err)
	}
	if !advanced || to != models.StageInReview {
		t.Fatalf("TryAdvance() = (%v, %q), want in_review", advanced, to)
	}
	if !p.Artifacts.Has(models.ArtifactPaper) || !p.Artifacts.Has(models.ArtifactCode) {
		t.Error("verified artifacts should be recorded on the project")
	}
}

func TestMachine_DoneNeverAdvances(t *testing.T) {
	m, _, _ := newMachine(t)
	p := &models.Project{ID: "proj-1", Stage: models.StageDone, Score: 10}

	_, _, err := m.TryAdvance(context.Background(), p)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("TryAdvance() from done error = %v, want ErrInvalidTransition", err)
	}
}

func TestMachine_RevertForCritical(t *testing.T) {
	m, _, tlog := newMachine(t)
	p := &models.Project{ID: "proj-1", Stage: models.StageInReview, Score: 3.5}

	to, err := m.RevertForCritical(context.Background(), p)
	if err != nil {
		t.Fatalf("RevertForCritical() error = %v", err)
	}
	if to != models.StageInProgress {
		t.Errorf("reverted to %q, want in_progress", to)
	}
	if p.Stage != models.StageInProgress || p.Score != 0 {
		t.Errorf("project state = (%q, %g), want (in_progress, 0)", p.Stage, p.Score)
	}
	if len(tlog.records) != 1 {
		t.Fatalf("transition log has %d records, want 1", len(tlog.records))
	}
	if tlog.records[0].From != models.StageInReview || tlog.records[0].To != models.StageInProgress {
		t.Errorf("logged %s -> %s, want in_review -> in_progress", tlog.records[0].From, tlog.records[0].To)
	}
}

func TestMachine_RevertAtBacklogResetsInPlace(t *testing.T) {
	m, _, tlog := newMachine(t)
	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 2.5}

	to, err := m.RevertForCritical(context.Background(), p)
	if err != nil {
		t.Fatalf("RevertForCritical() error = %v", err)
	}
	if to != models.StageBacklog {
		t.Errorf("stage = %q, want backlog unchanged", to)
	}
	if p.Score != 0 {
		t.Errorf("score = %g, want reset in place", p.Score)
	}
	if len(tlog.records) != 0 {
		t.Error("no stage changed, so no transition may be logged")
	}
}

func TestMachine_LogFailureBlocksTransition(t *testing.T) {
	store := artifacts.NewMemory()
	store.Put("proj-1", models.ArtifactDesign, true)
	tlog := &memLog{fail: errors.New("audit store down")}
	m := NewMachine(store, tlog)

	p := &models.Project{ID: "proj-1", Stage: models.StageBacklog, Score: 6.0}
	advanced, _, err := m.TryAdvance(context.Background(), p)
	if err == nil {
		t.Fatal("TryAdvance() should fail when the log cannot record")
	}
	if advanced {
		t.Error("transition must not apply when it cannot be logged")
	}
	if p.Stage != models.StageBacklog || p.Score != 6.0 {
		t.Errorf("project mutated despite log failure: stage %q score %g", p.Stage, p.Score)
	}
}

func TestGateFrom(t *testing.T) {
	tests := []struct {
		stage     models.Stage
		to        models.Stage
		threshold float64
	}{
		{models.StageBacklog, models.StageReady, 5.0},
		{models.StageReady, models.StageInProgress, 5.0},
		{models.StageInProgress, models.StageInReview, 1.0},
		{models.StageInReview, models.StageDone, 5.0},
	}
	for _, tt := range tests {
		g, ok := GateFrom(tt.stage)
		if !ok {
			t.Fatalf("GateFrom(%q) not found", tt.stage)
		}
		if g.To != tt.to || g.Threshold != tt.threshold {
			t.Errorf("GateFrom(%q) = (%q, %g), want (%q, %g)", tt.stage, g.To, g.Threshold, tt.to, tt.threshold)
		}
	}
	if _, ok := GateFrom(models.StageDone); ok {
		t.Error("done must have no forward gate")
	}
}
