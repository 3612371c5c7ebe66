package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify sagan configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/sagan/config.yaml
Project-specific overrides can be placed in .sagan.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("store.db_path: %s\n", cfg.Store.DBPath)
	fmt.Printf("store.artifact_root: %s\n", cfg.Store.ArtifactRoot)
	fmt.Printf("pipeline.policy_path: %s\n", cfg.Pipeline.PolicyPath)
	fmt.Printf("pipeline.seed: %d\n", cfg.Pipeline.Seed)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey != "" {
			fmt.Println("****")
		} else {
			fmt.Println("(not set)")
		}
	case "anthropic.model":
		fmt.Println(cfg.Anthropic.Model)
	case "anthropic.use_bedrock":
		fmt.Println(cfg.Anthropic.UseBedrock)
	case "anthropic.aws_region":
		fmt.Println(cfg.Anthropic.AWSRegion)
	case "anthropic.aws_profile":
		fmt.Println(cfg.Anthropic.AWSProfile)
	case "store.db_path":
		fmt.Println(cfg.Store.DBPath)
	case "store.artifact_root":
		fmt.Println(cfg.Store.ArtifactRoot)
	case "pipeline.policy_path":
		fmt.Println(cfg.Pipeline.PolicyPath)
	case "pipeline.seed":
		fmt.Println(cfg.Pipeline.Seed)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

// setConfigKey updates a configuration value and saves it.
func setConfigKey(cfg *config.Config, key, value string) {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid boolean value: %s\n", value)
			os.Exit(1)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "store.db_path":
		cfg.Store.DBPath = value
	case "store.artifact_root":
		cfg.Store.ArtifactRoot = value
	case "pipeline.policy_path":
		cfg.Pipeline.PolicyPath = value
	case "pipeline.seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid integer value: %s\n", value)
			os.Exit(1)
		}
		cfg.Pipeline.Seed = n
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s\n", key)
}
