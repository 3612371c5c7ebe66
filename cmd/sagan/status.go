package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/config"
	"github.com/tobiasfw/sagan/internal/state"
	"github.com/tobiasfw/sagan/internal/tracker"
)

var statusTransitions int

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show pipeline and project status",
	Long: `Show every tracked project's stage, score, and last activity.

With a project ID argument, also shows that project's recent stage
transitions from the local state database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusTransitions, "transitions", 10, "Max transitions to show for a single project")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tpath, err := trackerPath()
	if err != nil {
		return err
	}
	trk, err := tracker.NewFileStore(tpath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ids, err := trk.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No tracked projects. Create one with 'sagan add'.")
		return nil
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Project", "Title", "Stage", "Score", "Last Activity"})
	for _, id := range ids {
		labels, _, err := trk.Read(ctx, id)
		if err != nil {
			t.AppendRow(table.Row{id, "(unreadable)", "-", "-", "-"})
			continue
		}
		p := tracker.ProjectFrom(id, labels)
		t.AppendRow(table.Row{
			p.ID,
			p.Title,
			p.Stage,
			fmt.Sprintf("%.1f", p.Score),
			formatActivity(p.LastActivity),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	if len(args) == 0 {
		return nil
	}

	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = state.DefaultPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	transitions, err := db.Transitions(ctx, args[0], statusTransitions)
	if err != nil {
		return fmt.Errorf("load transitions: %w", err)
	}
	fmt.Printf("\nRecent transitions for %s:\n", args[0])
	if len(transitions) == 0 {
		fmt.Println("  none recorded")
		return nil
	}
	for _, tr := range transitions {
		fmt.Printf("  %s  %s -> %s (score %.1f)\n",
			tr.At.Local().Format("2006-01-02 15:04"), tr.From, tr.To, tr.TriggerScore)
	}
	return nil
}

// formatActivity renders a last-activity timestamp as a relative age.
func formatActivity(at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	age := time.Since(at)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
