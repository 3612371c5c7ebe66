package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate: %v", err)
	}
	if cfg.Pipeline.BacklogMinimum != 5 {
		t.Errorf("backlog minimum = %d, want 5", cfg.Pipeline.BacklogMinimum)
	}
	if cfg.Scheduler.JitterBound != 0.05 {
		t.Errorf("jitter bound = %g, want 0.05", cfg.Scheduler.JitterBound)
	}
}

func TestLoadFile_PartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := "pipeline:\n  backlog_minimum: 8\nloop:\n  max_tasks_per_cycle: 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Pipeline.BacklogMinimum != 8 {
		t.Errorf("backlog minimum = %d, want 8", cfg.Pipeline.BacklogMinimum)
	}
	if cfg.Loop.MaxTasksPerCycle != 3 {
		t.Errorf("max tasks = %d, want 3", cfg.Loop.MaxTasksPerCycle)
	}
	// Unnamed values keep their defaults.
	if cfg.Scheduler.CandidateCap != 100 {
		t.Errorf("candidate cap = %d, want default 100", cfg.Scheduler.CandidateCap)
	}
	if cfg.Pipeline.StaleReady != 14*24*time.Hour {
		t.Errorf("stale ready = %s, want default 14 days", cfg.Pipeline.StaleReady)
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  jitter_bound: 0.2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("a jitter bound above 0.05 must be rejected")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestSaveFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	cfg := Default()
	cfg.Pipeline.BacklogMinimum = 7

	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Pipeline.BacklogMinimum != 7 {
		t.Errorf("backlog minimum = %d, want 7", loaded.Pipeline.BacklogMinimum)
	}
	if loaded.Loop.TaskTimeout != cfg.Loop.TaskTimeout {
		t.Errorf("task timeout = %s, want %s", loaded.Loop.TaskTimeout, cfg.Loop.TaskTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero backlog minimum", func(c *Config) { c.Pipeline.BacklogMinimum = 0 }, false},
		{"negative jitter", func(c *Config) { c.Scheduler.JitterBound = -0.01 }, false},
		{"zero jitter is fine", func(c *Config) { c.Scheduler.JitterBound = 0 }, true},
		{"zero cap", func(c *Config) { c.Scheduler.CandidateCap = 0 }, false},
		{"zero max tasks", func(c *Config) { c.Loop.MaxTasksPerCycle = 0 }, false},
		{"zero timeout", func(c *Config) { c.Loop.TaskTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestStalenessWindow(t *testing.T) {
	cfg := Default()
	if w, ok := cfg.StalenessWindow("backlog"); !ok || w != 30*24*time.Hour {
		t.Errorf("backlog window = (%s, %v)", w, ok)
	}
	if w, ok := cfg.StalenessWindow("in_progress"); !ok || w != 7*24*time.Hour {
		t.Errorf("in_progress window = (%s, %v)", w, ok)
	}
	if _, ok := cfg.StalenessWindow("in_review"); ok {
		t.Error("in_review has no staleness policy")
	}
	if _, ok := cfg.StalenessWindow("done"); ok {
		t.Error("done has no staleness policy")
	}
}
