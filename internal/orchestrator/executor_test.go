package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/tobiasfw/sagan/internal/artifacts"
	"github.com/tobiasfw/sagan/internal/normalize"
	"github.com/tobiasfw/sagan/pkg/models"
)

// scriptedGenerator returns canned responses in order and records the
// temperatures it was called with.
type scriptedGenerator struct {
	responses    []string
	calls        int
	temperatures []float64
	err          error
}

func (g *scriptedGenerator) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	g.temperatures = append(g.temperatures, temperature)
	if g.err != nil {
		return "", g.err
	}
	i := g.calls
	g.calls++
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

func newTestExecutor(gen *scriptedGenerator) (*GeneratorExecutor, *artifacts.Memory) {
	store := artifacts.NewMemory()
	e := NewGeneratorExecutor(gen, memoryWriter{store}, normalize.DefaultRetryPolicy())
	e.SetClock(fixedClock)
	return e, store
}

// memoryWriter adapts the memory artifact store to the writer interface.
type memoryWriter struct {
	store *artifacts.Memory
}

func (w memoryWriter) Write(ctx context.Context, projectID string, kind models.ArtifactKind, content []byte) error {
	w.store.Put(projectID, kind, true)
	return nil
}

func TestExecutor_GenerateIdea(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"title: Sparse probes\nsummary: Test whether probes transfer across layers.",
	}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{Type: models.TaskGenerateIdea})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("task failed: %s", result.FailureReason)
	}
	if result.NewProject == nil {
		t.Fatal("idea generation should propose a project")
	}
	if result.NewProject.Title != "Sparse probes" {
		t.Errorf("title = %q", result.NewProject.Title)
	}
	if result.NewProject.Stage != models.StageBacklog {
		t.Errorf("stage = %q, want backlog", result.NewProject.Stage)
	}
	if result.NewProject.Score != 0 {
		t.Errorf("score = %g, want 0 for a fresh idea", result.NewProject.Score)
	}
}

func TestExecutor_RetryWithRisingTemperature(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"sorry, I cannot do structured output",
		"still just prose here",
		"title: Third try\nsummary: Works now.",
	}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{Type: models.TaskGenerateIdea})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("task failed: %s", result.FailureReason)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}

	want := []float64{0.2, 0.5, 0.8}
	for i, temp := range gen.temperatures {
		if diff := temp - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("attempt %d temperature = %g, want %g", i+1, temp, want[i])
		}
	}
}

func TestExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"never structured"}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{Type: models.TaskGenerateIdea})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Succeeded {
		t.Error("task should fail after exhausting retries")
	}
	if result.FailureReason == "" {
		t.Error("failed task should carry a reason")
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want exactly MaxAttempts", gen.calls)
	}
}

func TestExecutor_GeneratorErrorIsTerminal(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("api down")}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{Type: models.TaskGenerateIdea})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Succeeded {
		t.Error("transport failure should fail the task")
	}
	// Transport errors are not normalization failures: no retries.
	if gen.temperatures != nil && len(gen.temperatures) != 1 {
		t.Errorf("generator called %d times, transport errors must not retry", len(gen.temperatures))
	}
}

func TestExecutor_ReviewArtifact(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"verdict: positive\nscore: 8\nnotes: Strong experimental setup.",
	}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskReviewArtifact,
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("task failed: %s", result.FailureReason)
	}
	if len(result.Reviews) != 1 {
		t.Fatalf("got %d reviews, want 1", len(result.Reviews))
	}

	rev := result.Reviews[0]
	if rev.Origin != models.OriginAgent {
		t.Errorf("origin = %q, want agent", rev.Origin)
	}
	if rev.Polarity != models.PolarityPositive {
		t.Errorf("polarity = %q, want positive", rev.Polarity)
	}
	if rev.Body != "Strong experimental setup." {
		t.Errorf("body = %q", rev.Body)
	}
	if !rev.SubmittedAt.Equal(fixedClock()) {
		t.Errorf("submitted at = %v", rev.SubmittedAt)
	}
}

func TestExecutor_ReviewRejectsBadVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"verdict: lukewarm\nscore: 5\nnotes: unsure",
	}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskReviewArtifact,
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Succeeded {
		t.Error("an unknown verdict must not produce a review")
	}
	if len(result.Reviews) != 0 {
		t.Error("failed review task must carry no reviews")
	}
}

func TestExecutor_ReviewCriticalVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"verdict: critical\nscore: 2\nnotes: The core claim does not hold.",
	}}
	e, _ := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskReviewArtifact,
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("task failed: %s", result.FailureReason)
	}
	if result.Reviews[0].Polarity != models.PolarityCritical {
		t.Errorf("polarity = %q, want critical", result.Reviews[0].Polarity)
	}
}

func TestExecutor_WriteCodeArtifact(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"Here is the experiment:\n```python\nimport torch\n```",
	}}
	e, store := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskWriteArtifact,
		ProjectID: "proj-1",
		Artifact:  models.ArtifactCode,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("task failed: %s", result.FailureReason)
	}

	exists, _ := store.Exists(context.Background(), "proj-1", models.ArtifactCode)
	if !exists {
		t.Error("code artifact should be stored")
	}
}

func TestExecutor_WriteCodeNeedsFence(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"import torch, no fences"}}
	e, store := newTestExecutor(gen)

	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskWriteArtifact,
		ProjectID: "proj-1",
		Artifact:  models.ArtifactCode,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Succeeded {
		t.Error("unfenced code response must fail")
	}
	exists, _ := store.Exists(context.Background(), "proj-1", models.ArtifactCode)
	if exists {
		t.Error("nothing may be stored for a failed write")
	}
}

func TestExecutor_WriteArtifactWithoutKind(t *testing.T) {
	e, _ := newTestExecutor(&scriptedGenerator{responses: []string{"x"}})
	result, err := e.Execute(context.Background(), &models.TaskCandidate{
		Type:      models.TaskWriteArtifact,
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Succeeded {
		t.Error("a write candidate without an artifact kind must fail")
	}
}

func TestExecutor_StateOnlyTasksSucceedWithoutGenerator(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"unused"}}
	e, _ := newTestExecutor(gen)

	for _, typ := range []models.TaskType{models.TaskAdvanceStage, models.TaskReviveStale} {
		result, err := e.Execute(context.Background(), &models.TaskCandidate{Type: typ, ProjectID: "proj-1"})
		if err != nil {
			t.Fatalf("Execute(%q) error = %v", typ, err)
		}
		if !result.Succeeded {
			t.Errorf("state-only task %q should succeed", typ)
		}
	}
	if gen.calls != 0 {
		t.Errorf("state-only tasks made %d generator calls, want 0", gen.calls)
	}
}

func TestExecutor_UnknownTaskType(t *testing.T) {
	e, _ := newTestExecutor(&scriptedGenerator{responses: []string{"x"}})
	if _, err := e.Execute(context.Background(), &models.TaskCandidate{Type: "daydream"}); err == nil {
		t.Error("unknown task type must be a loud error")
	}
}
