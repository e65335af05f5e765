package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/api"
	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/db"
	"github.com/promptdeck/promptdeck/internal/ledger"
	"github.com/promptdeck/promptdeck/internal/logger"
	"github.com/promptdeck/promptdeck/internal/notify"
	"github.com/promptdeck/promptdeck/internal/rbac"
	"github.com/promptdeck/promptdeck/internal/search"
	"github.com/promptdeck/promptdeck/internal/service"
	"github.com/promptdeck/promptdeck/internal/worker"
	"golang.org/x/sync/errgroup"
)

// Run wires the application together and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger.Init(cfg.Log.Format, cfg.Log.Level)

	database, err := db.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return fmt.Errorf("failed to initialize RBAC: %w", err)
	}
	if err := db.CreateDefaultAdmin(database, cfg.Auth); err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	var recorder analytics.Recorder
	var usageWorker *worker.Worker
	switch cfg.Analytics.Transport {
	case "valkey":
		vr, err := analytics.NewValkeyRecorder(cfg.Analytics.ValkeyAddr, cfg.Analytics.StreamKey)
		if err != nil {
			return fmt.Errorf("failed to connect to valkey: %w", err)
		}
		recorder = vr
		usageWorker = worker.New(database, vr, slog.Default())
	default:
		recorder = analytics.NewStoreRecorder(database)
	}
	defer recorder.Close()

	broker := notify.NewBroker()
	templateLedger := ledger.New(database)
	svc := service.New(database, templateLedger, recorder, broker)
	facade := search.NewFacade(search.NewStoreIndex(database), recorder, cfg.Search.MaxLimit, cfg.Search.DefaultLimit)
	authenticator := auth.NewJWTAuthenticator(database, cfg.Auth.JWTSecret)

	router := api.NewRouter(cfg, database, svc, facade, broker, authenticator)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.Server.Port, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if usageWorker != nil {
		g.Go(func() error {
			return usageWorker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// RunWithSignalHandling runs the server until SIGINT or SIGTERM.
func RunWithSignalHandling(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}
