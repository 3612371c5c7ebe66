// Package policy defines configurable policy parameters for pipeline
// behavior. This centralizes threshold values and tunables in one
// place, enabling configuration from a YAML file and testing.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configurable policy parameters for the orchestrator.
type Config struct {
	// Pipeline policies control candidate generation.
	Pipeline PipelinePolicy `yaml:"pipeline"`

	// Scheduler policies control priority computation.
	Scheduler SchedulerPolicy `yaml:"scheduler"`

	// Loop policies control cycle execution.
	Loop LoopPolicy `yaml:"loop"`
}

// PipelinePolicy controls task candidate generation.
type PipelinePolicy struct {
	// BacklogMinimum is the backlog size below which idea generation
	// candidates are produced.
	BacklogMinimum int `yaml:"backlog_minimum"`

	// StaleBacklog is the inactivity window after which a BACKLOG
	// project produces a revival candidate.
	StaleBacklog time.Duration `yaml:"stale_backlog"`

	// StaleReady is the inactivity window for READY projects.
	StaleReady time.Duration `yaml:"stale_ready"`

	// StaleInProgress is the inactivity window for IN_PROGRESS projects.
	StaleInProgress time.Duration `yaml:"stale_in_progress"`
}

// SchedulerPolicy controls priority scoring.
type SchedulerPolicy struct {
	// JitterBound is the upper bound of the random tie-breaking jitter.
	JitterBound float64 `yaml:"jitter_bound"`

	// CandidateCap is the maximum number of candidates ranked per
	// cycle. Excess low-priority candidates are dropped early rather
	// than materialized and sorted.
	CandidateCap int `yaml:"candidate_cap"`
}

// LoopPolicy controls cycle execution behavior.
type LoopPolicy struct {
	// MaxTasksPerCycle limits how many ranked candidates are executed
	// in a single cycle.
	MaxTasksPerCycle int `yaml:"max_tasks_per_cycle"`

	// TaskTimeout is the per-task execution timeout. A stalled task is
	// abandoned, not retried within the cycle.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// PollInterval is the delay between cycles in watch mode.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelinePolicy{
			BacklogMinimum:  5,
			StaleBacklog:    30 * 24 * time.Hour,
			StaleReady:      14 * 24 * time.Hour,
			StaleInProgress: 7 * 24 * time.Hour,
		},
		Scheduler: SchedulerPolicy{
			JitterBound:  0.05,
			CandidateCap: 100,
		},
		Loop: LoopPolicy{
			MaxTasksPerCycle: 10,
			TaskTimeout:      5 * time.Minute,
			PollInterval:     30 * time.Second,
		},
	}
}

// LoadFile reads a policy file, overlaying it on the defaults so a
// partial file only overrides what it names.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveFile writes the policy to a YAML file.
func (c *Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	return nil
}

// Validate checks policy values for consistency.
func (c *Config) Validate() error {
	if c.Pipeline.BacklogMinimum < 1 {
		return fmt.Errorf("pipeline.backlog_minimum must be at least 1, got %d", c.Pipeline.BacklogMinimum)
	}
	if c.Scheduler.JitterBound < 0 || c.Scheduler.JitterBound > 0.05 {
		return fmt.Errorf("scheduler.jitter_bound must be in [0, 0.05], got %g", c.Scheduler.JitterBound)
	}
	if c.Scheduler.CandidateCap < 1 {
		return fmt.Errorf("scheduler.candidate_cap must be at least 1, got %d", c.Scheduler.CandidateCap)
	}
	if c.Loop.MaxTasksPerCycle < 1 {
		return fmt.Errorf("loop.max_tasks_per_cycle must be at least 1, got %d", c.Loop.MaxTasksPerCycle)
	}
	if c.Loop.TaskTimeout <= 0 {
		return fmt.Errorf("loop.task_timeout must be positive, got %s", c.Loop.TaskTimeout)
	}
	return nil
}

// StalenessWindow returns the inactivity window for the given stage
// name, or 0 and false if the stage has no staleness policy.
func (c *Config) StalenessWindow(stage string) (time.Duration, bool) {
	switch stage {
	case "backlog":
		return c.Pipeline.StaleBacklog, true
	case "ready":
		return c.Pipeline.StaleReady, true
	case "in_progress":
		return c.Pipeline.StaleInProgress, true
	default:
		return 0, false
	}
}
