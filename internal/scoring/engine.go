// Package scoring converts review events into a project's running score.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/tobiasfw/sagan/pkg/models"
)

// Score deltas by origin. Human judgment counts double.
const (
	humanDelta = 1.0
	agentDelta = 0.5
)

// Ledger records which review identities have already been applied.
// It is the idempotence guard: the authoritative store is eventually
// consistent, so the same review event can be delivered more than once.
type Ledger interface {
	// Applied reports whether the review identity key has been applied.
	Applied(ctx context.Context, key string) (bool, error)
	// MarkApplied records the review identity key as applied.
	MarkApplied(ctx context.Context, key string) error
}

// Outcome describes what applying a review did to a project.
type Outcome int

const (
	// OutcomeApplied means the review's delta was added to the score.
	OutcomeApplied Outcome = iota
	// OutcomeDuplicate means the review was seen before and ignored.
	OutcomeDuplicate
	// OutcomeCritical means the review was critical: the score is left
	// to the stage state machine, which reverts the project one stage
	// and resets the score there.
	OutcomeCritical
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Engine applies reviews to projects, enforcing the zero floor and the
// once-only guarantee. It is the only code path that changes a
// project's score outside of a stage transition reset.
type Engine struct {
	ledger Ledger
}

// NewEngine creates an Engine backed by the given applied-review ledger.
func NewEngine(ledger Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Delta returns the signed score delta a non-critical review carries.
// Critical reviews have no delta; Delta returns 0 for them.
func Delta(rev models.Review) float64 {
	var magnitude float64
	switch rev.Origin {
	case models.OriginHuman:
		magnitude = humanDelta
	case models.OriginAgent:
		magnitude = agentDelta
	default:
		return 0
	}

	switch rev.Polarity {
	case models.PolarityPositive:
		return magnitude
	case models.PolarityNegative:
		return -magnitude
	default:
		return 0
	}
}

// Apply records the review in the project's history and updates the
// score. The causing review is always appended before the score moves,
// so every mutation is traceable to a review. The floor at zero is
// absolute: no accumulation of negative reviews produces a negative
// score. Critical reviews take a separate path: the review is recorded
// with zero impact and OutcomeCritical tells the caller to run the
// stage reversion.
func (e *Engine) Apply(ctx context.Context, p *models.Project, rev models.Review) (Outcome, error) {
	if !rev.Origin.Valid() {
		return 0, fmt.Errorf("review %s: unknown origin %q", rev.ID, rev.Origin)
	}
	if !rev.Polarity.Valid() {
		return 0, fmt.Errorf("review %s: unknown polarity %q", rev.ID, rev.Polarity)
	}

	key := rev.IdentityKey(p.ID)
	seen, err := e.ledger.Applied(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("check review ledger: %w", err)
	}
	if seen {
		return OutcomeDuplicate, nil
	}

	if rev.Polarity == models.PolarityCritical {
		rev.Impact = 0
		p.Reviews = append(p.Reviews, rev)
		return OutcomeCritical, nil
	}

	delta := Delta(rev)
	rev.Impact = delta
	p.Reviews = append(p.Reviews, rev)
	p.Score = math.Max(0, p.Score+delta)
	return OutcomeApplied, nil
}

// Commit records the review as applied in the ledger. Callers commit
// only after the mutated state has been written back to the
// authoritative store: a stale-write conflict discards the mutation, so
// the review must stay eligible for re-application next cycle.
func (e *Engine) Commit(ctx context.Context, p *models.Project, rev models.Review) error {
	if err := e.ledger.MarkApplied(ctx, rev.IdentityKey(p.ID)); err != nil {
		return fmt.Errorf("mark review applied: %w", err)
	}
	return nil
}
