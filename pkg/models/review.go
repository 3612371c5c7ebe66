package models

import (
	"fmt"
	"time"
)

// ReviewOrigin identifies who produced a review.
type ReviewOrigin string

const (
	// OriginHuman indicates a review submitted by a person.
	OriginHuman ReviewOrigin = "human"
	// OriginAgent indicates a review produced by an automated reviewer.
	OriginAgent ReviewOrigin = "agent"
)

// Valid returns true if the origin is a known value.
func (o ReviewOrigin) Valid() bool {
	return o == OriginHuman || o == OriginAgent
}

// ReviewPolarity classifies a review's verdict.
type ReviewPolarity string

const (
	// PolarityPositive indicates the review endorses the work.
	PolarityPositive ReviewPolarity = "positive"
	// PolarityNegative indicates the review finds the work lacking.
	PolarityNegative ReviewPolarity = "negative"
	// PolarityCritical indicates a defect severe enough to send the
	// project back a stage. Critical reviews carry no signed magnitude.
	PolarityCritical ReviewPolarity = "critical"
)

// Valid returns true if the polarity is a known value.
func (p ReviewPolarity) Valid() bool {
	switch p {
	case PolarityPositive, PolarityNegative, PolarityCritical:
		return true
	default:
		return false
	}
}

// Review is a single immutable review event against a project.
// Once created it is only ever appended to a project's history.
type Review struct {
	// ID is the unique identifier for this review.
	ID string `json:"id"`
	// Reviewer identifies who submitted the review.
	Reviewer string `json:"reviewer"`
	// Origin is the review's source (human or agent).
	Origin ReviewOrigin `json:"origin"`
	// Polarity is the review's verdict.
	Polarity ReviewPolarity `json:"polarity"`
	// SubmittedAt is when the review was submitted.
	SubmittedAt time.Time `json:"submitted_at"`
	// Body is the free-text content of the review.
	Body string `json:"body,omitempty"`
	// Impact is the signed score delta this review produced when applied.
	// Always 0 for critical reviews, which reset rather than accumulate.
	Impact float64 `json:"impact"`
}

// IdentityKey returns the deduplication key for this review against a project.
// Applying a review whose key has been seen before must be a no-op.
func (r Review) IdentityKey(projectID string) string {
	return fmt.Sprintf("%s|%s|%d", projectID, r.Reviewer, r.SubmittedAt.UTC().UnixNano())
}
