package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tobiasfw/sagan/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sagan version %s\n", version.Get())
	},
}
