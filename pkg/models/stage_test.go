package models

import "testing"

func TestStage_Next(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  Stage
		ok    bool
	}{
		{"backlog advances to ready", StageBacklog, StageReady, true},
		{"ready advances to in_progress", StageReady, StageInProgress, true},
		{"in_progress advances to in_review", StageInProgress, StageInReview, true},
		{"in_review advances to done", StageInReview, StageDone, true},
		{"done is terminal", StageDone, "", false},
		{"unknown stage", Stage("shipped"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stage.Next()
			if ok != tt.ok {
				t.Fatalf("Next() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStage_Prev(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  Stage
		ok    bool
	}{
		{"backlog has no predecessor", StageBacklog, "", false},
		{"ready reverts to backlog", StageReady, StageBacklog, true},
		{"done reverts to in_review", StageDone, StageInReview, true},
		{"unknown stage", Stage("triage"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stage.Prev()
			if ok != tt.ok {
				t.Fatalf("Prev() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Prev() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStage_Valid(t *testing.T) {
	for _, s := range Stages() {
		if !s.Valid() {
			t.Errorf("Stage %q should be valid", s)
		}
	}
	for _, s := range []Stage{"", "DONE", "review", "archived"} {
		if s.Valid() {
			t.Errorf("Stage %q should be invalid", s)
		}
	}
}

func TestStage_Terminal(t *testing.T) {
	if !StageDone.Terminal() {
		t.Error("done should be terminal")
	}
	for _, s := range []Stage{StageBacklog, StageReady, StageInProgress, StageInReview} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestStage_Index(t *testing.T) {
	for i, s := range Stages() {
		if got := s.Index(); got != i {
			t.Errorf("Index(%q) = %d, want %d", s, got, i)
		}
	}
	if got := Stage("nope").Index(); got != -1 {
		t.Errorf("Index of unknown stage = %d, want -1", got)
	}
}
