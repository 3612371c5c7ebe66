package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tobiasfw/sagan/internal/artifacts"
	"github.com/tobiasfw/sagan/internal/lifecycle"
	"github.com/tobiasfw/sagan/internal/orchestrator/policy"
	"github.com/tobiasfw/sagan/internal/scoring"
	"github.com/tobiasfw/sagan/internal/tracker"
	"github.com/tobiasfw/sagan/pkg/models"
)

// InterestSource supplies read-only human-interest counters for a project.
type InterestSource interface {
	Interest(ctx context.Context, projectID string) (upvotes, downvotes, views int, err error)
}

// Signals gates loop execution on operator control files.
type Signals interface {
	ShouldStop() bool
	ShouldPause() bool
}

// Orchestrator runs the scheduling cycle: read all project state, rank
// candidates, execute them one at a time, and write mutations back with
// compare-and-swap. There is exactly one writer, so no locks guard the
// in-cycle state; every cross-process conflict surfaces as a stale
// write and is recomputed next cycle.
type Orchestrator struct {
	tracker    tracker.Store
	artifacts  artifacts.Store
	engine     *scoring.Engine
	machine    *lifecycle.Machine
	generator  *CandidateGenerator
	scheduler  *Scheduler
	executor   Executor
	interest   InterestSource
	signals    Signals
	policy     *policy.Config
	logger     *DebugLogger
	now        func() time.Time
	projFilter string
}

// Options configures an Orchestrator.
type Options struct {
	// Tracker is the authoritative label store.
	Tracker tracker.Store
	// Artifacts answers artifact-existence queries.
	Artifacts artifacts.Store
	// Engine applies review score deltas.
	Engine *scoring.Engine
	// Machine evaluates stage transitions.
	Machine *lifecycle.Machine
	// Executor runs content-producing tasks. Optional: without one,
	// content candidates are reported but skipped (dry-run).
	Executor Executor
	// Interest supplies human-interest counters. Optional.
	Interest InterestSource
	// Signals gates execution on control files. Optional.
	Signals Signals
	// Policy holds the pipeline tunables. Defaults when nil.
	Policy *policy.Config
	// Seed seeds the scheduler's tie-breaking jitter.
	Seed int64
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *DebugLogger
}

// New creates an Orchestrator from options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Tracker == nil {
		return nil, fmt.Errorf("orchestrator requires a tracker store")
	}
	if opts.Artifacts == nil {
		return nil, fmt.Errorf("orchestrator requires an artifact store")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("orchestrator requires a scoring engine")
	}
	if opts.Machine == nil {
		return nil, fmt.Errorf("orchestrator requires a stage machine")
	}
	p := opts.Policy
	if p == nil {
		p = policy.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	return &Orchestrator{
		tracker:   opts.Tracker,
		artifacts: opts.Artifacts,
		engine:    opts.Engine,
		machine:   opts.Machine,
		generator: NewCandidateGenerator(p),
		scheduler: NewScheduler(p, opts.Seed),
		executor:  opts.Executor,
		interest:  opts.Interest,
		signals:   opts.Signals,
		policy:    p,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetProjectFilter restricts candidate generation to a single project.
// Idea-generation candidates are suppressed while a filter is active.
func (o *Orchestrator) SetProjectFilter(projectID string) {
	o.projFilter = projectID
}

// SetRecommendedCategory forwards an external recommendation to the scheduler.
func (o *Orchestrator) SetRecommendedCategory(cat models.TaskCategory) {
	o.scheduler.SetRecommendedCategory(cat)
}

// SetClock overrides the orchestrator's time source. Used in tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
	o.generator.SetClock(now)
	o.machine.SetClock(now)
}

// CycleReport summarizes one scheduling cycle.
type CycleReport struct {
	// Projects is the number of projects successfully loaded.
	Projects int
	// Skipped lists projects skipped because a collaborator was unreachable.
	Skipped []string
	// Candidates is the number of candidates generated before ranking.
	Candidates int
	// Ranked holds the ranked candidate list, for dry runs and status output.
	Ranked []*models.TaskCandidate
	// Executed is the number of tasks run this cycle.
	Executed int
	// Failed is the number of executed tasks that did not succeed.
	Failed int
	// Advanced lists projects that changed stage this cycle.
	Advanced []models.StageTransition
	// Created lists project IDs added by idea generation.
	Created []string
}

// Plan runs the read-and-rank half of a cycle without executing
// anything. Used by the plan command.
func (o *Orchestrator) Plan(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{}
	projects := o.loadProjects(ctx, report)

	candidates := o.generateCandidates(projects)
	report.Candidates = len(candidates)
	report.Ranked = o.scheduler.Rank(candidates)
	return report, nil
}

// RunCycle executes one full scheduling cycle. No per-task error is
// fatal: failures are logged, counted, and left for regeneration next
// cycle, preserving pipeline liveness.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleReport, error) {
	report, err := o.Plan(ctx)
	if err != nil {
		return nil, err
	}

	maxTasks := o.policy.Loop.MaxTasksPerCycle
	for _, c := range report.Ranked {
		if report.Executed >= maxTasks {
			o.logger.Log("[cycle] reached max tasks per cycle (%d)", maxTasks)
			break
		}
		if ctx.Err() != nil {
			break
		}
		if o.signals != nil && (o.signals.ShouldStop() || o.signals.ShouldPause()) {
			log.Printf("[cycle] control signal raised, stopping cycle early")
			break
		}

		report.Executed++
		if err := o.runCandidate(ctx, c, report); err != nil {
			report.Failed++
			log.Printf("[cycle] task %s (%s) failed: %v", c.ID, c.Type, err)
		}
	}

	o.logger.Log("[cycle] done: %d projects, %d candidates, %d executed, %d failed",
		report.Projects, report.Candidates, report.Executed, report.Failed)
	return report, nil
}

// loadProjects reads every tracked project's state. Unreachable
// collaborators skip the affected project, never the cycle.
func (o *Orchestrator) loadProjects(ctx context.Context, report *CycleReport) []*models.Project {
	ids, err := o.tracker.List(ctx)
	if err != nil {
		log.Printf("[cycle] tracker list failed, running empty cycle: %v", err)
		return nil
	}

	var projects []*models.Project
	for _, id := range ids {
		if o.projFilter != "" && id != o.projFilter {
			continue
		}
		p, _, err := o.loadProject(ctx, id)
		if err != nil {
			log.Printf("[cycle] skipping project %s: %v", id, err)
			report.Skipped = append(report.Skipped, id)
			continue
		}
		projects = append(projects, p)
	}
	report.Projects = len(projects)
	return projects
}

// loadProject assembles a project view from the tracker labels, the
// artifact store, and the interest source. The returned version token
// guards any subsequent write.
func (o *Orchestrator) loadProject(ctx context.Context, id string) (*models.Project, uint64, error) {
	labels, version, err := o.tracker.Read(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("read tracker labels: %w", err)
	}
	p := tracker.ProjectFrom(id, labels)

	for _, kind := range models.ArtifactKinds() {
		exists, err := o.artifacts.Exists(ctx, id, kind)
		if err != nil {
			return nil, 0, fmt.Errorf("artifact store: %w", err)
		}
		p.Artifacts.Set(kind, exists)
	}

	if o.interest != nil {
		up, down, views, err := o.interest.Interest(ctx, id)
		if err != nil {
			// Interest is a scheduling bias, not project state; a
			// missing signal reads as zero.
			debugLog("[cycle] interest source failed for %s: %v", id, err)
		} else {
			p.Upvotes, p.Downvotes, p.Views = up, down, views
		}
	}

	return p, version, nil
}

// generateCandidates produces and filters the cycle's candidate set.
func (o *Orchestrator) generateCandidates(projects []*models.Project) []*models.TaskCandidate {
	candidates := o.generator.Generate(projects)
	if o.projFilter == "" {
		return candidates
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.ProjectID == o.projFilter {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// runCandidate dispatches one ranked candidate. The task-type set is
// closed; every type is handled here and unknown values fail loudly.
func (o *Orchestrator) runCandidate(ctx context.Context, c *models.TaskCandidate, report *CycleReport) error {
	taskCtx, cancel := context.WithTimeout(ctx, o.policy.Loop.TaskTimeout)
	defer cancel()

	switch c.Type {
	case models.TaskAdvanceStage:
		return o.applyAdvance(taskCtx, c.ProjectID, report)
	case models.TaskReviveStale:
		return o.applyRevive(taskCtx, c.ProjectID)
	case models.TaskGenerateIdea, models.TaskReviewArtifact, models.TaskWriteArtifact:
		return o.runContentTask(taskCtx, c, report)
	default:
		return fmt.Errorf("unknown task type %q", c.Type)
	}
}

// runContentTask delegates to the executor and folds its results back
// into pipeline state.
func (o *Orchestrator) runContentTask(ctx context.Context, c *models.TaskCandidate, report *CycleReport) error {
	if o.executor == nil {
		return fmt.Errorf("no executor configured for %s", c.Type)
	}

	result, err := o.executor.Execute(ctx, c)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return fmt.Errorf("task did not produce usable output: %s", result.FailureReason)
	}

	if result.NewProject != nil {
		np := result.NewProject
		if err := o.tracker.Create(ctx, np.ID, tracker.LabelsFor(np)); err != nil {
			return fmt.Errorf("register new project: %w", err)
		}
		report.Created = append(report.Created, np.ID)
		log.Printf("[cycle] created project %s (%s)", np.ID, np.Title)
	}

	for _, rev := range result.Reviews {
		if err := o.ApplyReview(ctx, result.ProjectID, rev); err != nil {
			return err
		}
	}

	if result.Type == models.TaskWriteArtifact {
		return o.touchActivity(ctx, c.ProjectID)
	}
	return nil
}

// ApplyReview runs the full review pipeline against one project as a
// compare-and-swap read-modify-write: load fresh state, apply the score
// delta (or critical reversion), evaluate the stage gate, and write
// back only if the tracker version is unchanged. A stale write discards
// the mutation; the review stays uncommitted and re-applies next cycle.
func (o *Orchestrator) ApplyReview(ctx context.Context, projectID string, rev models.Review) error {
	p, version, err := o.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	outcome, err := o.engine.Apply(ctx, p, rev)
	if err != nil {
		return err
	}
	o.logger.Log("[review] project %s: %s review from %s -> %s (score %.1f)",
		projectID, rev.Polarity, rev.Reviewer, outcome, p.Score)

	switch outcome {
	case scoring.OutcomeDuplicate:
		return nil
	case scoring.OutcomeCritical:
		if _, err := o.machine.RevertForCritical(ctx, p); err != nil {
			return err
		}
	case scoring.OutcomeApplied:
		// A fresh delta may have pushed the project over its gate.
		if _, _, aerr := o.machine.TryAdvance(ctx, p); aerr != nil && !errors.Is(aerr, lifecycle.ErrInvalidTransition) {
			return aerr
		}
	}

	p.LastActivity = o.now()
	if err := o.tracker.Write(ctx, projectID, tracker.LabelsFor(p), version); err != nil {
		if errors.Is(err, tracker.ErrStaleWrite) {
			log.Printf("[review] stale write for %s, discarding mutation for next cycle", projectID)
		}
		return err
	}

	// Commit the review identity only after the authoritative write
	// lands, so a discarded mutation never swallows the review.
	return o.engine.Commit(ctx, p, rev)
}

// applyAdvance re-evaluates a project's stage gate and persists a
// transition when the gate holds.
func (o *Orchestrator) applyAdvance(ctx context.Context, projectID string, report *CycleReport) error {
	p, version, err := o.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	from := p.Stage
	score := p.Score
	advanced, newStage, err := o.machine.TryAdvance(ctx, p)
	if err != nil {
		return err
	}
	if !advanced {
		o.logger.Log("[advance] project %s holds at %s", projectID, p.Stage)
		return nil
	}

	if err := o.tracker.Write(ctx, projectID, tracker.LabelsFor(p), version); err != nil {
		if errors.Is(err, tracker.ErrStaleWrite) {
			log.Printf("[advance] stale write for %s, discarding transition for next cycle", projectID)
		}
		return err
	}

	report.Advanced = append(report.Advanced, models.StageTransition{
		ProjectID:    projectID,
		From:         from,
		To:           newStage,
		TriggerScore: score,
		At:           o.now(),
	})
	return nil
}

// applyRevive refreshes a stale project's activity timestamp so it
// stops surfacing as stale and re-enters normal scheduling.
func (o *Orchestrator) applyRevive(ctx context.Context, projectID string) error {
	log.Printf("[revive] nudging stale project %s", projectID)
	return o.touchActivity(ctx, projectID)
}

// touchActivity CAS-updates a project's last-activity label.
func (o *Orchestrator) touchActivity(ctx context.Context, projectID string) error {
	p, version, err := o.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	p.LastActivity = o.now()
	return o.tracker.Write(ctx, projectID, tracker.LabelsFor(p), version)
}
