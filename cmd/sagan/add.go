package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/tracker"
	"github.com/tobiasfw/sagan/pkg/models"
)

var addID string

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a project to the backlog",
	Long: `Add a new project to the tracker in the backlog stage with a
zero review score. Use this to seed the pipeline by hand instead of
waiting for idea generation.

Examples:
  sagan add "Sparse attention for long-context retrieval"
  sagan add --id proj-custom "Reproduce the lottery ticket results"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "Project ID (default: generated)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	tpath, err := trackerPath()
	if err != nil {
		return err
	}
	trk, err := tracker.NewFileStore(tpath)
	if err != nil {
		return err
	}

	id := addID
	if id == "" {
		id = "proj-" + uuid.New().String()[:8]
	}

	p := &models.Project{
		ID:           id,
		Title:        args[0],
		Stage:        models.StageBacklog,
		LastActivity: time.Now().UTC(),
	}
	if err := trk.Create(context.Background(), id, tracker.LabelsFor(p)); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	fmt.Printf("Added %s (%s) to the backlog\n", id, args[0])
	return nil
}
