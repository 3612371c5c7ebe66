package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/config"
)

var (
	planProject string
	planPolicy  string
	planSeed    int64
	planLimit   int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the ranked task plan without executing",
	Long: `Rank the current cycle's task candidates and print them without
executing anything. This is a dry run: no generator calls are made and
no tracker labels change, so it needs no API key.

Examples:
  sagan plan                    # Full ranked candidate list
  sagan plan --limit 10         # Top 10 only
  sagan plan --seed 42          # Reproducible jitter`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planProject, "project", "", "Restrict candidates to a single project ID")
	planCmd.Flags().StringVar(&planPolicy, "policy", "", "Path to a YAML policy file")
	planCmd.Flags().Int64Var(&planSeed, "seed", 0, "Scheduler jitter seed (0 = config or time-derived)")
	planCmd.Flags().IntVar(&planLimit, "limit", 0, "Show at most N candidates (0 = all)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if planPolicy != "" {
		cfg.Pipeline.PolicyPath = planPolicy
	}

	p, err := buildPipeline(cfg, false, planProject, planSeed)
	if err != nil {
		return err
	}
	defer p.close()

	report, err := p.orch.Plan(context.Background())
	if err != nil {
		return fmt.Errorf("plan cycle: %w", err)
	}

	ranked := report.Ranked
	if planLimit > 0 && len(ranked) > planLimit {
		ranked = ranked[:planLimit]
	}

	if len(ranked) == 0 {
		fmt.Println("No task candidates. Add projects with 'sagan add' or lower the backlog minimum.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Priority", "Type", "Category", "Project", "Reason"})
	for i, c := range ranked {
		project := c.ProjectID
		if project == "" {
			project = "-"
		}
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%.3f", c.Priority), c.Type, c.Category, project, c.Reason})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Printf("\n%d projects, %d candidates generated\n", report.Projects, report.Candidates)
	if len(report.Skipped) > 0 {
		fmt.Printf("skipped (tracker unreachable): %d\n", len(report.Skipped))
	}
	return nil
}
