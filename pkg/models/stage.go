package models

// Stage represents a project's position in the research lifecycle.
type Stage string

const (
	// StageBacklog indicates the project is an unrefined idea.
	StageBacklog Stage = "backlog"
	// StageReady indicates the project has an approved design.
	StageReady Stage = "ready"
	// StageInProgress indicates implementation and writing are underway.
	StageInProgress Stage = "in_progress"
	// StageInReview indicates the draft and code are under review.
	StageInReview Stage = "in_review"
	// StageDone indicates the project is complete. Terminal.
	StageDone Stage = "done"
)

// stageOrder is the fixed forward sequence of lifecycle stages.
var stageOrder = []Stage{StageBacklog, StageReady, StageInProgress, StageInReview, StageDone}

// Stages returns the lifecycle stages in forward order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid returns true if the stage is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageBacklog, StageReady, StageInProgress, StageInReview, StageDone:
		return true
	default:
		return false
	}
}

// Terminal returns true if no forward transition leaves this stage.
func (s Stage) Terminal() bool {
	return s == StageDone
}

// Next returns the following stage in the forward sequence.
// The second return value is false for DONE and unknown stages.
func (s Stage) Next() (Stage, bool) {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// Prev returns the preceding stage in the forward sequence.
// The second return value is false for BACKLOG and unknown stages.
func (s Stage) Prev() (Stage, bool) {
	for i, st := range stageOrder {
		if st == s && i > 0 {
			return stageOrder[i-1], true
		}
	}
	return "", false
}

// Index returns the stage's position in the forward sequence, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}
