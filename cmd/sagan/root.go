package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sagan",
	Short: "Autonomous research pipeline orchestrator",
	Long: `Sagan drives a pool of research projects through a fixed lifecycle:
ideas accumulate review score, pass quality gates, and move from
backlog through design, implementation, and review to a finished paper.

Each cycle sagan reads the state of every project, enumerates the work
the pipeline needs (new ideas, reviews, missing artifacts, stage
checks, revivals), ranks it, and executes the top tasks through an
external generator.

Core behaviors:
- Review scores accumulate with a hard floor at zero
- Critical reviews revert a project one stage
- Stage transitions require both a score threshold and artifacts
- Every stage change is recorded in an audit log
- Duplicate review events never double-count`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
