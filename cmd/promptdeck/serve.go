package main

import (
	"log/slog"
	"os"

	"github.com/promptdeck/promptdeck/internal/api/handlers"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PromptDeck API server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		handlers.Version = Version

		cfg, err := config.Load()
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		if err := server.RunWithSignalHandling(cfg); err != nil {
			slog.Error("Server exited with error", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run the server on (overrides config)")
}
