// Package lifecycle implements the stage state machine: the fixed
// forward sequence of lifecycle stages and the quality gates between them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tobiasfw/sagan/pkg/models"
)

// ErrInvalidTransition indicates an advancement was attempted that the
// transition table does not allow.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Gate is a forward edge in the transition table: the artifacts that
// must exist and the score that must be reached before a project moves
// from From to To.
type Gate struct {
	// From is the source stage.
	From models.Stage
	// To is the destination stage.
	To models.Stage
	// Artifacts lists every artifact kind that must exist.
	Artifacts []models.ArtifactKind
	// Threshold is the minimum accumulated score.
	Threshold float64
}

// gates is the fixed transition table. There is exactly one forward
// edge per non-terminal stage; TryAdvance never skips an edge no matter
// how far the score exceeds the threshold.
var gates = []Gate{
	{From: models.StageBacklog, To: models.StageReady, Artifacts: []models.ArtifactKind{models.ArtifactDesign}, Threshold: 5.0},
	{From: models.StageReady, To: models.StageInProgress, Artifacts: []models.ArtifactKind{models.ArtifactPlan}, Threshold: 5.0},
	{From: models.StageInProgress, To: models.StageInReview, Artifacts: []models.ArtifactKind{models.ArtifactPaper, models.ArtifactCode}, Threshold: 1.0},
	{From: models.StageInReview, To: models.StageDone, Artifacts: []models.ArtifactKind{models.ArtifactPaper}, Threshold: 5.0},
}

// GateFrom returns the forward gate leaving the given stage.
// The second return value is false for DONE and unknown stages.
func GateFrom(stage models.Stage) (Gate, bool) {
	for _, g := range gates {
		if g.From == stage {
			return g, true
		}
	}
	return Gate{}, false
}

// Threshold returns the score threshold for advancing out of the given
// stage, or 0 and false if the stage has no forward edge.
func Threshold(stage models.Stage) (float64, bool) {
	g, ok := GateFrom(stage)
	if !ok {
		return 0, false
	}
	return g.Threshold, true
}

// TransitionLog records stage transitions for audit. Every stage change
// goes through the log; the machine never mutates a stage silently.
type TransitionLog interface {
	Record(ctx context.Context, t models.StageTransition) error
}

// ArtifactChecker answers artifact-existence queries against the
// external artifact store.
type ArtifactChecker interface {
	Exists(ctx context.Context, projectID string, kind models.ArtifactKind) (bool, error)
}

// Machine evaluates and applies stage transitions. It owns all stage
// mutation: forward advancement through quality gates and the one-step
// reversion a critical review triggers.
type Machine struct {
	artifacts ArtifactChecker
	log       TransitionLog
	now       func() time.Time
}

// NewMachine creates a Machine using the given artifact checker and
// transition log.
func NewMachine(artifacts ArtifactChecker, tlog TransitionLog) *Machine {
	return &Machine{
		artifacts: artifacts,
		log:       tlog,
		now:       time.Now,
	}
}

// SetClock overrides the machine's time source. Used in tests.
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// TryAdvance evaluates the single edge leaving the project's current
// stage and advances iff both the artifact predicate and the score
// threshold hold. On success the score resets to 0 in the new stage and
// a StageTransition is logged. Unmet gates are reported, never silently
// applied; a DONE project never advances.
func (m *Machine) TryAdvance(ctx context.Context, p *models.Project) (bool, models.Stage, error) {
	gate, ok := GateFrom(p.Stage)
	if !ok {
		return false, "", fmt.Errorf("%w: no forward edge from %q", ErrInvalidTransition, p.Stage)
	}

	if p.Score < gate.Threshold {
		log.Printf("[lifecycle] project %s holds at %s: score %.1f below threshold %.1f", p.ID, p.Stage, p.Score, gate.Threshold)
		return false, "", nil
	}

	for _, kind := range gate.Artifacts {
		exists, err := m.artifacts.Exists(ctx, p.ID, kind)
		if err != nil {
			return false, "", fmt.Errorf("check %s artifact for %s: %w", kind, p.ID, err)
		}
		if !exists {
			log.Printf("[lifecycle] project %s holds at %s: missing %s artifact", p.ID, p.Stage, kind)
			return false, "", nil
		}
		p.Artifacts.Set(kind, true)
	}

	if err := m.transition(ctx, p, gate.To); err != nil {
		return false, "", err
	}
	return true, gate.To, nil
}

// RevertForCritical applies the critical-review reversion: the project
// moves exactly one stage backward and its score resets to 0 in the
// destination stage. A BACKLOG project has nothing to revert to, so its
// score resets in place with no transition logged (no stage changed).
func (m *Machine) RevertForCritical(ctx context.Context, p *models.Project) (models.Stage, error) {
	prev, ok := p.Stage.Prev()
	if !ok {
		p.Score = 0
		log.Printf("[lifecycle] critical review: project %s stays in %s, score reset", p.ID, p.Stage)
		return p.Stage, nil
	}

	if err := m.transition(ctx, p, prev); err != nil {
		return "", err
	}
	log.Printf("[lifecycle] critical review: project %s reverted to %s", p.ID, prev)
	return prev, nil
}

// transition logs and applies a stage change with a score reset.
// The StageTransition record is written before the in-memory mutation
// so no stage change can escape the audit log.
func (m *Machine) transition(ctx context.Context, p *models.Project, to models.Stage) error {
	rec := models.StageTransition{
		ProjectID:    p.ID,
		From:         p.Stage,
		To:           to,
		TriggerScore: p.Score,
		At:           m.now(),
	}
	if err := m.log.Record(ctx, rec); err != nil {
		return fmt.Errorf("record transition %s -> %s: %w", rec.From, rec.To, err)
	}

	log.Printf("[lifecycle] project %s: %s -> %s (score %.1f, reset to 0)", p.ID, p.Stage, to, p.Score)
	p.Stage = to
	p.Score = 0
	p.LastActivity = rec.At
	return nil
}
