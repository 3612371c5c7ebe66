package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tobiasfw/sagan/internal/lifecycle"
	"github.com/tobiasfw/sagan/internal/orchestrator/policy"
	"github.com/tobiasfw/sagan/pkg/models"
)

// CandidateGenerator enumerates executable task candidates from current
// project state. Generation is a pure read: it never mutates project
// data, and candidates live only for the cycle that produced them.
type CandidateGenerator struct {
	policy *policy.Config
	now    func() time.Time
}

// NewCandidateGenerator creates a generator with the given policy.
func NewCandidateGenerator(p *policy.Config) *CandidateGenerator {
	if p == nil {
		p = policy.Default()
	}
	return &CandidateGenerator{
		policy: p,
		now:    time.Now,
	}
}

// SetClock overrides the generator's time source. Used in tests.
func (g *CandidateGenerator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate inspects all known projects and produces the candidate set
// for one scheduling cycle. DONE projects never yield candidates.
func (g *CandidateGenerator) Generate(projects []*models.Project) []*models.TaskCandidate {
	var out []*models.TaskCandidate

	backlogCount := 0
	for _, p := range projects {
		if p.Stage == models.StageBacklog {
			backlogCount++
		}
	}

	// Pipeline fill: keep the backlog above the configured minimum.
	// Urgency rises as the backlog empties: min/(min+count) is 1.0 for
	// an empty backlog and stays above 0.5 while count < min.
	if minimum := g.policy.Pipeline.BacklogMinimum; backlogCount < minimum {
		urgency := float64(minimum) / float64(minimum+backlogCount)
		out = append(out, &models.TaskCandidate{
			ID:       uuid.NewString(),
			Type:     models.TaskGenerateIdea,
			Category: models.CategoryPipelineFill,
			Urgency:  urgency,
			Reason:   fmt.Sprintf("backlog has %d of %d projects", backlogCount, minimum),
		})
	}

	for _, p := range projects {
		if p.Stage == models.StageDone {
			continue
		}
		out = append(out, g.generateForProject(p)...)
	}

	debugLog("[candidates] generated %d candidates from %d projects (backlog=%d)", len(out), len(projects), backlogCount)
	return out
}

// generateForProject produces the candidates a single non-DONE project warrants.
func (g *CandidateGenerator) generateForProject(p *models.Project) []*models.TaskCandidate {
	var out []*models.TaskCandidate

	if threshold, ok := lifecycle.Threshold(p.Stage); ok {
		if p.Score < threshold {
			// Below the gate: the project needs more review signal.
			urgency := (threshold - p.Score) / threshold
			out = append(out, &models.TaskCandidate{
				ID:        uuid.NewString(),
				Type:      models.TaskReviewArtifact,
				ProjectID: p.ID,
				Category:  models.CategoryAdvanceItem,
				Urgency:   clamp01(urgency),
				Interest:  p.NetInterest(),
				Reason:    fmt.Sprintf("score %.1f below %s threshold %.1f", p.Score, p.Stage, threshold),
			})
		} else {
			// At or above the gate but still here: the stage check may
			// be lagging the score update. Schedule a re-evaluation.
			out = append(out, &models.TaskCandidate{
				ID:        uuid.NewString(),
				Type:      models.TaskAdvanceStage,
				ProjectID: p.ID,
				Category:  models.CategoryAdvanceItem,
				Urgency:   0.8,
				Interest:  p.NetInterest(),
				Reason:    fmt.Sprintf("score %.1f meets %s threshold %.1f", p.Score, p.Stage, threshold),
			})
		}
	}

	// Completion: an IN_PROGRESS project missing a gate artifact needs
	// that artifact written before it can ever pass the gate.
	if p.Stage == models.StageInProgress {
		if gate, ok := lifecycle.GateFrom(p.Stage); ok {
			for _, kind := range gate.Artifacts {
				if p.Artifacts.Has(kind) {
					continue
				}
				out = append(out, &models.TaskCandidate{
					ID:        uuid.NewString(),
					Type:      models.TaskWriteArtifact,
					ProjectID: p.ID,
					Category:  models.CategoryCompleteWork,
					Artifact:  kind,
					Urgency:   0.7,
					Interest:  p.NetInterest(),
					Reason:    fmt.Sprintf("missing %s artifact", kind),
				})
			}
		}
	}

	// Revival: projects idle past their stage's staleness window.
	if window, ok := g.policy.StalenessWindow(string(p.Stage)); ok && !p.LastActivity.IsZero() {
		idle := g.now().Sub(p.LastActivity)
		if idle > window {
			overdue := float64(idle-window) / float64(window)
			out = append(out, &models.TaskCandidate{
				ID:        uuid.NewString(),
				Type:      models.TaskReviveStale,
				ProjectID: p.ID,
				Category:  models.CategoryMaintenance,
				Urgency:   clamp01(overdue),
				Interest:  p.NetInterest(),
				Reason:    fmt.Sprintf("idle %s in %s (window %s)", idle.Round(time.Hour), p.Stage, window),
			})
		}
	}

	return out
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
