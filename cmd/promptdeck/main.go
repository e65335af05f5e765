package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/promptdeck/promptdeck/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "promptdeck",
	Short: "PromptDeck - Template relationship and lifecycle engine",
	Long:  `PromptDeck manages prompt and agent templates with fork lineage, favorites, and usage analytics.`,
	Example: `  # Start the API server
  promptdeck serve

  # Seed templates from a YAML file
  promptdeck seed templates.yaml --owner admin

  # Grant a user the admin role
  promptdeck admin grant alice`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
