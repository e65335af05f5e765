package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/promptdeck/promptdeck/internal/api/handlers"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/server"

	_ "github.com/promptdeck/promptdeck/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

// @title PromptDeck API
// @version 1.0
// @description Template relationship and lifecycle engine API
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	port := flag.Int("port", 0, "Port to run the server on (overrides config)")
	flag.Parse()

	handlers.Version = Version

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
