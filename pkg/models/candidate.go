package models

// TaskType identifies one of the closed set of executable task kinds.
// Adding a type means extending every exhaustive switch over this set;
// the dispatchers fail loudly on unknown values rather than guessing.
type TaskType string

const (
	// TaskGenerateIdea proposes a new project for the backlog.
	TaskGenerateIdea TaskType = "generate_idea"
	// TaskReviewArtifact requests a review of a project's current work.
	TaskReviewArtifact TaskType = "review_artifact"
	// TaskAdvanceStage re-evaluates a project's quality gate.
	TaskAdvanceStage TaskType = "advance_stage"
	// TaskWriteArtifact produces a missing artifact for an in-progress project.
	TaskWriteArtifact TaskType = "write_artifact"
	// TaskReviveStale nudges a project that has gone quiet.
	TaskReviveStale TaskType = "revive_stale"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskGenerateIdea, TaskReviewArtifact, TaskAdvanceStage, TaskWriteArtifact, TaskReviveStale:
		return true
	default:
		return false
	}
}

// TaskCategory groups task types for priority weighting.
type TaskCategory string

const (
	// CategoryPipelineFill covers tasks that add new work to the pipeline.
	CategoryPipelineFill TaskCategory = "pipeline_fill"
	// CategoryAdvanceItem covers tasks that move existing work forward.
	CategoryAdvanceItem TaskCategory = "advance_item"
	// CategoryCompleteWork covers tasks that finish missing artifacts.
	CategoryCompleteWork TaskCategory = "complete_work"
	// CategoryMaintenance covers housekeeping like reviving stale projects.
	CategoryMaintenance TaskCategory = "maintenance"
)

// Valid returns true if the category is a known value.
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryPipelineFill, CategoryAdvanceItem, CategoryCompleteWork, CategoryMaintenance:
		return true
	default:
		return false
	}
}

// TaskCandidate is a proposed unit of work for one scheduling cycle.
// Candidates are regenerated every cycle and never persisted.
type TaskCandidate struct {
	// ID is the unique identifier for this candidate within a cycle.
	ID string `json:"id"`
	// Type is the task kind.
	Type TaskType `json:"type"`
	// ProjectID names the target project. Empty for idea generation.
	ProjectID string `json:"project_id,omitempty"`
	// Category groups the candidate for priority weighting.
	Category TaskCategory `json:"category"`
	// Artifact is the artifact kind to produce, for write tasks.
	Artifact ArtifactKind `json:"artifact,omitempty"`
	// Urgency is the generator's computed urgency input, in [0, 1].
	Urgency float64 `json:"urgency"`
	// Interest is the target project's net human interest (upvotes - downvotes).
	Interest int `json:"interest"`
	// Reason is a short human-readable explanation of why this candidate exists.
	Reason string `json:"reason,omitempty"`
	// Priority is the scheduler-assigned final score in [0, 1].
	// Zero until the scheduler has ranked the candidate.
	Priority float64 `json:"priority"`
}
