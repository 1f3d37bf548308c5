package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalog-lab/vitalog/internal/bodymetrics"
	"github.com/vitalog-lab/vitalog/internal/config"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
	"github.com/vitalog-lab/vitalog/internal/core/storage/postgres"
	"github.com/vitalog-lab/vitalog/internal/exercise"
	"github.com/vitalog-lab/vitalog/internal/migrations"
	"github.com/vitalog-lab/vitalog/internal/notify"
	"github.com/vitalog-lab/vitalog/internal/ocr"
	"github.com/vitalog-lab/vitalog/internal/reference"
	"github.com/vitalog-lab/vitalog/internal/server"
)

func main() {
	configPath := flag.String("config", "vitalog.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize the Reference Catalog
	var refStore storage.ReferenceStore
	switch cfg.Reference.SourceType {
	case "postgres":
		refStore = postgres.NewReferenceAdapter(dbAdapter)
	case "filesystem":
		refStore, err = reference.NewFileSystemStore(cfg.Reference.Path)
		if err != nil {
			slog.Error("Failed to load reference catalog", "path", cfg.Reference.Path, "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unsupported reference source type", "type", cfg.Reference.SourceType)
		os.Exit(1)
	}
	catalog := reference.NewProvider(refStore, cfg.Reference.EffectiveCacheTTL())

	// 4. Initialize the Measurement Webhook
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Notify.Endpoint != "" {
		timeout := parseDuration(cfg.Notify.Timeout, 5*time.Second)
		notifier = notify.NewHTTPNotifier(cfg.Notify.Endpoint, timeout)
		slog.Info("Measurement webhook enabled", "endpoint", cfg.Notify.Endpoint, "timeout", timeout)
	}

	// 5. Initialize Sheet Recognition (optional)
	var extractor *ocr.Service
	if cfg.OCR.Endpoint != "" {
		deadline := parseDuration(cfg.OCR.Deadline, 30*time.Second)
		extractor = ocr.NewService(ocr.NewHTTPGateway(cfg.OCR.Endpoint), deadline)
		slog.Info("Sheet recognition enabled", "endpoint", cfg.OCR.Endpoint, "deadline", deadline)
	}

	// 6. Initialize Services
	bodySvc := bodymetrics.NewService(postgres.NewMeasurementAdapter(dbAdapter), notifier)
	exerciseSvc := exercise.NewService(
		postgres.NewExerciseAdapter(dbAdapter),
		catalog,
		postgres.NewFavoriteAdapter(dbAdapter),
	)

	// 7. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	srv.Engine.MaxMultipartMemory = int64(cfg.Server.MaxBodySizeMB) << 20
	srv.Engine.Use(server.Identity())
	bodymetrics.NewHandler(bodySvc, extractor).RegisterRoutes(srv.Engine)
	exercise.NewHandler(exerciseSvc).RegisterRoutes(srv.Engine)

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in config, using fallback", "value", raw, "fallback", fallback)
		return fallback
	}
	return d
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
