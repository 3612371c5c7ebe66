package models

import "time"

// ArtifactKind identifies one of the artifact types a project accumulates.
type ArtifactKind string

const (
	// ArtifactDesign is the design document.
	ArtifactDesign ArtifactKind = "design"
	// ArtifactPlan is the implementation plan.
	ArtifactPlan ArtifactKind = "plan"
	// ArtifactCode is the experiment code.
	ArtifactCode ArtifactKind = "code"
	// ArtifactPaper is the paper draft (or compiled paper, once built).
	ArtifactPaper ArtifactKind = "paper"
)

// ArtifactKinds returns all artifact kinds in a fixed order.
func ArtifactKinds() []ArtifactKind {
	return []ArtifactKind{ArtifactDesign, ArtifactPlan, ArtifactCode, ArtifactPaper}
}

// Valid returns true if the kind is a known value.
func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactDesign, ArtifactPlan, ArtifactCode, ArtifactPaper:
		return true
	default:
		return false
	}
}

// Artifacts tracks which artifact types exist for a project.
type Artifacts struct {
	Design bool `json:"design"`
	Plan   bool `json:"plan"`
	Code   bool `json:"code"`
	Paper  bool `json:"paper"`
}

// Has returns true if the artifact of the given kind exists.
func (a Artifacts) Has(kind ArtifactKind) bool {
	switch kind {
	case ArtifactDesign:
		return a.Design
	case ArtifactPlan:
		return a.Plan
	case ArtifactCode:
		return a.Code
	case ArtifactPaper:
		return a.Paper
	default:
		return false
	}
}

// Set records the presence of the artifact of the given kind.
func (a *Artifacts) Set(kind ArtifactKind, present bool) {
	switch kind {
	case ArtifactDesign:
		a.Design = present
	case ArtifactPlan:
		a.Plan = present
	case ArtifactCode:
		a.Code = present
	case ArtifactPaper:
		a.Paper = present
	}
}

// Project is a research project tracked through the pipeline.
// It is owned by the orchestrator and mutated only through the scoring
// engine and the stage state machine, never written directly.
type Project struct {
	// ID is the unique, immutable project identifier.
	ID string `json:"id"`
	// Title is the short human-readable name of the project.
	Title string `json:"title,omitempty"`
	// Stage is the project's current lifecycle stage.
	Stage Stage `json:"stage"`
	// Score is the accumulated review score. Never negative.
	Score float64 `json:"score"`
	// Reviews is the append-only ordered review history.
	Reviews []Review `json:"reviews,omitempty"`
	// Artifacts records which artifact types exist for this project.
	Artifacts Artifacts `json:"artifacts"`
	// LastActivity is the most recent time any work touched this project.
	LastActivity time.Time `json:"last_activity"`
	// Upvotes is the count of positive human reactions.
	Upvotes int `json:"upvotes,omitempty"`
	// Downvotes is the count of negative human reactions.
	Downvotes int `json:"downvotes,omitempty"`
	// Views is the count of dashboard views.
	Views int `json:"views,omitempty"`
}

// NetInterest returns upvotes minus downvotes.
func (p *Project) NetInterest() int {
	return p.Upvotes - p.Downvotes
}

// StageTransition is an append-only audit record of a stage change.
// It is created only by the stage state machine and never mutated.
type StageTransition struct {
	// ProjectID identifies the project that transitioned.
	ProjectID string `json:"project_id"`
	// From is the stage the project left.
	From Stage `json:"from"`
	// To is the stage the project entered.
	To Stage `json:"to"`
	// TriggerScore is the score that held when the transition fired.
	TriggerScore float64 `json:"trigger_score"`
	// At is when the transition occurred.
	At time.Time `json:"at"`
}
