package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/config"
	"github.com/tobiasfw/sagan/internal/orchestrator"
)

var (
	runMaxTasks int
	runProject  string
	runWatch    bool
	runInterval time.Duration
	runPolicy   string
	runSeed     int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pipeline scheduling cycles",
	Long: `Run one or more scheduling cycles against the project tracker.

Each cycle reads every project's labels, generates task candidates
(idea generation, reviews, artifact writing, stage advancement, stale
revival), ranks them by priority, and executes the top tasks. Score
changes and stage transitions are written back to the tracker with
compare-and-swap; conflicting writes are dropped and recomputed on the
next cycle.

With --watch, cycles repeat on an interval until interrupted or a
kill/pause signal file appears under .sagan/signals/.

Examples:
  sagan run                       # One cycle
  sagan run --max-tasks 3         # One cycle, at most 3 tasks
  sagan run --project proj-a1b2   # Only candidates for one project
  sagan run --watch --interval 5m # Continuous operation`,
	RunE: runCycles,
}

func init() {
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "Max tasks per cycle (0 = policy default)")
	runCmd.Flags().StringVar(&runProject, "project", "", "Restrict candidates to a single project ID")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Keep running cycles on an interval")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Delay between cycles in watch mode (0 = policy default)")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "Path to a YAML policy file")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Scheduler jitter seed (0 = config or time-derived)")
}

func runCycles(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runPolicy != "" {
		cfg.Pipeline.PolicyPath = runPolicy
	}

	p, err := buildPipeline(cfg, true, runProject, runSeed)
	if err != nil {
		return err
	}
	defer p.close()

	if runMaxTasks > 0 {
		p.policy.Loop.MaxTasksPerCycle = runMaxTasks
	}
	interval := runInterval
	if interval <= 0 {
		interval = p.policy.Loop.PollInterval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		if p.signals.ShouldStop() {
			fmt.Println("Kill signal raised, stopping.")
			return nil
		}
		if p.signals.ShouldPause() {
			fmt.Println("Pause signal raised, waiting...")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
			continue
		}

		report, err := p.orch.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("run cycle: %w", err)
		}
		printCycleSummary(report)

		if !runWatch {
			return nil
		}
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted.")
			return nil
		case <-time.After(interval):
		}
	}
}

// printCycleSummary prints a one-screen account of a finished cycle.
func printCycleSummary(report *orchestrator.CycleReport) {
	fmt.Printf("Cycle complete: %d projects, %d candidates, %d executed (%d failed)\n",
		report.Projects, report.Candidates, report.Executed, report.Failed)
	if len(report.Skipped) > 0 {
		fmt.Printf("  skipped (tracker unreachable): %s\n", strings.Join(report.Skipped, ", "))
	}
	for _, t := range report.Advanced {
		fmt.Printf("  %s advanced %s -> %s (score %.1f)\n", t.ProjectID, t.From, t.To, t.TriggerScore)
	}
	for _, id := range report.Created {
		fmt.Printf("  created project %s\n", id)
	}
}
