package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tobiasfw/sagan/internal/normalize"
	"github.com/tobiasfw/sagan/pkg/models"
)

// TextGenerator is the narrow view of the generator service the
// executor needs: prompt in, text out.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// ArtifactWriter stores generated artifact content.
type ArtifactWriter interface {
	Write(ctx context.Context, projectID string, kind models.ArtifactKind, content []byte) error
}

// Result is the structured outcome of executing one task candidate.
type Result struct {
	// Type is the executed task's type.
	Type models.TaskType
	// ProjectID is the target project, if any.
	ProjectID string
	// Succeeded indicates the task produced its expected output.
	Succeeded bool
	// FailureReason explains a failed task. Failed tasks are not
	// retried here; the candidate regenerates next cycle if conditions
	// still hold.
	FailureReason string
	// Reviews holds any new reviews the task produced. They re-enter
	// the scoring engine.
	Reviews []models.Review
	// NewProject holds a freshly proposed project, for idea generation.
	NewProject *models.Project
}

// Executor runs content-producing task candidates against the generator.
type Executor interface {
	Execute(ctx context.Context, c *models.TaskCandidate) (*Result, error)
}

// GeneratorExecutor produces ideas, reviews, and artifacts through the
// external generator. Malformed responses are retried per the retry
// policy with rising temperature; parsing itself stays deterministic.
type GeneratorExecutor struct {
	gen       TextGenerator
	artifacts ArtifactWriter
	retry     normalize.RetryPolicy
	// reviewerID identifies this executor in reviews it produces.
	reviewerID string
	now        func() time.Time
}

// NewGeneratorExecutor creates an executor over the given generator and
// artifact writer.
func NewGeneratorExecutor(gen TextGenerator, artifacts ArtifactWriter, retry normalize.RetryPolicy) *GeneratorExecutor {
	return &GeneratorExecutor{
		gen:        gen,
		artifacts:  artifacts,
		retry:      retry,
		reviewerID: "sagan-reviewer",
		now:        time.Now,
	}
}

// SetClock overrides the executor's time source. Used in tests.
func (e *GeneratorExecutor) SetClock(now func() time.Time) {
	e.now = now
}

// Execute dispatches on the candidate's task type. The type set is
// closed; an unknown type is a programming error, reported loudly.
func (e *GeneratorExecutor) Execute(ctx context.Context, c *models.TaskCandidate) (*Result, error) {
	switch c.Type {
	case models.TaskGenerateIdea:
		return e.generateIdea(ctx, c)
	case models.TaskReviewArtifact:
		return e.reviewArtifact(ctx, c)
	case models.TaskWriteArtifact:
		return e.writeArtifact(ctx, c)
	case models.TaskAdvanceStage, models.TaskReviveStale:
		// State-only tasks carry no generator work; the orchestrator
		// applies them directly after execution.
		return &Result{Type: c.Type, ProjectID: c.ProjectID, Succeeded: true}, nil
	default:
		return nil, fmt.Errorf("unknown task type %q", c.Type)
	}
}

// completeWithRetry runs the generation-normalize loop: on a malformed
// response the prompt is retried at a higher temperature until the
// policy gives up.
func (e *GeneratorExecutor) completeWithRetry(ctx context.Context, prompt string, parse func(string) error) error {
	for attempt := 1; ; attempt++ {
		temp := e.retry.TemperatureFor(attempt)
		text, err := e.gen.Complete(ctx, prompt, temp)
		if err != nil {
			return fmt.Errorf("generator call: %w", err)
		}

		parseErr := parse(text)
		if parseErr == nil {
			return nil
		}
		if !errors.Is(parseErr, normalize.ErrMalformedResponse) &&
			!errors.Is(parseErr, normalize.ErrMissingField) &&
			!errors.Is(parseErr, normalize.ErrScoreOutOfRange) {
			return parseErr
		}
		if !e.retry.ShouldRetry(attempt) {
			return fmt.Errorf("attempt %d: %w", attempt, parseErr)
		}
		debugLog("[executor] attempt %d failed to normalize (%v), retrying at temperature %.1f", attempt, parseErr, e.retry.TemperatureFor(attempt+1))
	}
}

const ideaPrompt = `Propose one new machine learning research project idea.
Respond with exactly these fields, one per line:

title: <short project title>
summary: <two sentence description>
`

// generateIdea asks the generator for a new backlog project.
func (e *GeneratorExecutor) generateIdea(ctx context.Context, c *models.TaskCandidate) (*Result, error) {
	result := &Result{Type: c.Type}

	var fields map[string]string
	err := e.completeWithRetry(ctx, ideaPrompt, func(text string) error {
		parsed, perr := normalize.ExtractKeyValueSet(text, []string{"title", "summary"})
		if perr != nil {
			return perr
		}
		fields = parsed
		return nil
	})
	if err != nil {
		result.FailureReason = err.Error()
		return result, nil
	}

	now := e.now()
	result.Succeeded = true
	result.NewProject = &models.Project{
		ID:           "proj-" + uuid.NewString()[:8],
		Title:        fields["title"],
		Stage:        models.StageBacklog,
		LastActivity: now,
	}
	return result, nil
}

const reviewPromptFmt = `You are reviewing research project %q in stage %s.
Assess the current work and respond with exactly these fields:

verdict: <positive, negative, or critical>
score: <0-10 quality score>
notes: <one paragraph of reasoning>
`

// reviewArtifact asks the generator to review a project and returns the
// resulting review for the scoring engine.
func (e *GeneratorExecutor) reviewArtifact(ctx context.Context, c *models.TaskCandidate) (*Result, error) {
	result := &Result{Type: c.Type, ProjectID: c.ProjectID}
	prompt := fmt.Sprintf(reviewPromptFmt, c.ProjectID, "current")

	var polarity models.ReviewPolarity
	var body string
	err := e.completeWithRetry(ctx, prompt, func(text string) error {
		fields, perr := normalize.ExtractKeyValueSet(text, []string{"verdict", "score"})
		if perr != nil {
			return perr
		}
		if _, perr = normalize.ExtractScore("score: " + fields["score"]); perr != nil {
			return perr
		}
		p := models.ReviewPolarity(strings.ToLower(strings.TrimSpace(fields["verdict"])))
		if !p.Valid() {
			return fmt.Errorf("verdict %q: %w", fields["verdict"], normalize.ErrMalformedResponse)
		}
		polarity = p
		body = fields["notes"]
		return nil
	})
	if err != nil {
		result.FailureReason = err.Error()
		return result, nil
	}

	result.Succeeded = true
	result.Reviews = []models.Review{{
		ID:          uuid.NewString(),
		Reviewer:    e.reviewerID,
		Origin:      models.OriginAgent,
		Polarity:    polarity,
		SubmittedAt: e.now(),
		Body:        body,
	}}
	return result, nil
}

const artifactPromptFmt = `Write the %s artifact for research project %q.
%s`

// artifactInstructions describes the expected output per artifact kind.
var artifactInstructions = map[models.ArtifactKind]string{
	models.ArtifactDesign: "Produce a design document in markdown.",
	models.ArtifactPlan:   "Produce an implementation plan in markdown.",
	models.ArtifactCode:   "Respond with a single fenced code block containing the experiment code.",
	models.ArtifactPaper:  "Produce the paper draft in markdown.",
}

// writeArtifact asks the generator to produce a missing artifact and
// stores it.
func (e *GeneratorExecutor) writeArtifact(ctx context.Context, c *models.TaskCandidate) (*Result, error) {
	result := &Result{Type: c.Type, ProjectID: c.ProjectID}
	if !c.Artifact.Valid() {
		result.FailureReason = fmt.Sprintf("candidate has no valid artifact kind (%q)", c.Artifact)
		return result, nil
	}

	prompt := fmt.Sprintf(artifactPromptFmt, c.Artifact, c.ProjectID, artifactInstructions[c.Artifact])

	var content string
	err := e.completeWithRetry(ctx, prompt, func(text string) error {
		if c.Artifact == models.ArtifactCode {
			fragment, perr := normalize.ExtractCodeFragment(text)
			if perr != nil {
				return perr
			}
			content = fragment
			return nil
		}
		if strings.TrimSpace(text) == "" {
			return normalize.ErrMalformedResponse
		}
		content = text
		return nil
	})
	if err != nil {
		result.FailureReason = err.Error()
		return result, nil
	}

	if err := e.artifacts.Write(ctx, c.ProjectID, c.Artifact, []byte(content)); err != nil {
		result.FailureReason = fmt.Sprintf("store artifact: %v", err)
		return result, nil
	}

	result.Succeeded = true
	return result, nil
}
