package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tobiasfw/sagan/pkg/models"
)

// Label prefixes. State is encoded as string labels on the tracker
// issue, e.g. "score: 4.5" and "stage: ready".
const (
	scorePrefix    = "score: "
	stagePrefix    = "stage: "
	activityPrefix = "activity: "
	titlePrefix    = "title: "
)

// ScoreFrom extracts the score label. A missing or unparseable score
// label reads as 0: the tracker is eventually consistent and a fresh
// issue may not carry labels yet.
func ScoreFrom(labels []string) float64 {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(l, scorePrefix); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil || v < 0 {
				return 0
			}
			return v
		}
	}
	return 0
}

// StageFrom extracts the stage label. A missing or unknown stage label
// reads as BACKLOG.
func StageFrom(labels []string) models.Stage {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(l, stagePrefix); ok {
			s := models.Stage(strings.TrimSpace(rest))
			if s.Valid() {
				return s
			}
			return models.StageBacklog
		}
	}
	return models.StageBacklog
}

// ActivityFrom extracts the last-activity label. Missing or malformed
// timestamps read as the zero time.
func ActivityFrom(labels []string) time.Time {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(l, activityPrefix); ok {
			t, err := time.Parse(time.RFC3339, strings.TrimSpace(rest))
			if err != nil {
				return time.Time{}
			}
			return t
		}
	}
	return time.Time{}
}

// TitleFrom extracts the title label, if present.
func TitleFrom(labels []string) string {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(l, titlePrefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// LabelsFor encodes a project's orchestrator-owned state as labels.
func LabelsFor(p *models.Project) []string {
	labels := []string{
		scorePrefix + strconv.FormatFloat(p.Score, 'f', 1, 64),
		stagePrefix + string(p.Stage),
	}
	if !p.LastActivity.IsZero() {
		labels = append(labels, activityPrefix+p.LastActivity.UTC().Format(time.RFC3339))
	}
	if p.Title != "" {
		labels = append(labels, titlePrefix+p.Title)
	}
	return labels
}

// ProjectFrom decodes a label set into a project skeleton. Artifact
// flags and interest counters come from other collaborators and are
// left zero here.
func ProjectFrom(projectID string, labels []string) *models.Project {
	return &models.Project{
		ID:           projectID,
		Title:        TitleFrom(labels),
		Stage:        StageFrom(labels),
		Score:        ScoreFrom(labels),
		LastActivity: ActivityFrom(labels),
	}
}

// String renders a label set for logs.
func String(labels []string) string {
	return fmt.Sprintf("[%s]", strings.Join(labels, ", "))
}
