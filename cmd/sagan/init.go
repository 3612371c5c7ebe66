package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/config"
	"github.com/tobiasfw/sagan/internal/orchestrator/policy"
	"github.com/tobiasfw/sagan/internal/tracker"
)

var (
	initForce      bool
	initWithPolicy bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a sagan pipeline directory",
	Long: `Initialize a directory for use with sagan.

This command sets up everything needed to run the pipeline:
  - Verifies the generator API key is available
  - Creates the .sagan directory (tracker, signals, logs)
  - Creates the artifact root directory
  - Optionally writes an editable policy file

The directory argument is optional and defaults to the current directory.

Examples:
  sagan init                  # Initialize current directory
  sagan init ./lab            # Initialize specific directory
  sagan init --with-policy    # Also write .sagan/policy.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithPolicy, "with-policy", false, "Write an editable policy file with the defaults")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}
	if err := os.Chdir(absPath); err != nil {
		return fmt.Errorf("changing to directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing sagan in %s...\n\n", absPath)

	saganDir := filepath.Join(absPath, ".sagan")
	if _, err := os.Stat(saganDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Anthropic.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (required for 'sagan run')", color.FgYellow)
	} else {
		printStatus("✓", "Generator API key found", color.FgGreen)
	}

	for _, dir := range []string{
		saganDir,
		filepath.Join(saganDir, "signals"),
		filepath.Join(saganDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .sagan directory structure", color.FgGreen)

	// Seed an empty tracker so read-only commands work immediately.
	if _, err := tracker.NewFileStore(filepath.Join(saganDir, "tracker.json")); err != nil {
		return fmt.Errorf("creating tracker file: %w", err)
	}
	printStatus("✓", "Created project tracker", color.FgGreen)

	artifactRoot := cfg.Store.ArtifactRoot
	if artifactRoot == "" {
		artifactRoot = "artifacts"
	}
	if err := os.MkdirAll(artifactRoot, 0755); err != nil {
		return fmt.Errorf("creating artifact root: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Created artifact root %s", artifactRoot), color.FgGreen)

	if initWithPolicy {
		policyPath := filepath.Join(saganDir, "policy.yaml")
		if err := policy.Default().SaveFile(policyPath); err != nil {
			return fmt.Errorf("writing policy file: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Wrote default policy to %s", policyPath), color.FgGreen)
		fmt.Printf("\nSet pipeline.policy_path to %s in your config to use it.\n", policyPath)
	}

	fmt.Println("\nDone. Seed the backlog with 'sagan add', then 'sagan run'.")
	return nil
}

// printStatus prints a colored status line.
func printStatus(mark, message string, c color.Attribute) {
	color.New(c).Printf("%s ", mark)
	fmt.Println(message)
}
