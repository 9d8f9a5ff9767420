package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/events"
	"github.com/MikeSquared-Agency/scribe/internal/ledger"
	"github.com/MikeSquared-Agency/scribe/internal/memstore"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

func execute() error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	root := &cobra.Command{
		Use:           "scribe",
		Short:         "Clean conversation exports and deliver them to a memory store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCleanCommand(cfg),
		newUploadCommand(cfg),
		newBatchCleanCommand(cfg),
		newBatchUploadCommand(cfg),
		newServeCommand(cfg),
		newStatusCommand(cfg),
	)

	return root.Execute()
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func openRepo(cfg config.Config) (*repository.FS, error) {
	repo := repository.New(cfg.DataDir)
	if err := repo.EnsureLayout(); err != nil {
		return nil, err
	}
	return repo, nil
}

func newStoreClient(cfg config.Config) *memstore.Client {
	return memstore.NewClient(cfg.MemstoreURL, cfg.MemstoreToken)
}

// openLedger connects the optional Postgres delivery ledger. No
// DATABASE_URL means no ledger, which is not an error.
func openLedger(ctx context.Context, cfg config.Config) (*ledger.Ledger, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	l, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := l.Init(ctx); err != nil {
		l.Close()
		return nil, err
	}
	slog.Info("delivery ledger connected")
	return l, nil
}

// connectEvents connects the optional NATS publisher. Connection failures
// degrade to no event emission rather than failing the run.
func connectEvents(cfg config.Config) *events.Publisher {
	if cfg.NatsURL == "" {
		return nil
	}
	pub, err := events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Warn("nats unavailable, running without events", "error", err)
		return nil
	}
	slog.Info("event publisher connected", "url", cfg.NatsURL)
	return pub
}

func runnerConfig(cfg config.Config, dryRun bool) pipeline.Config {
	rc := pipeline.DefaultConfig()
	rc.MaxRetries = cfg.MaxRetries
	rc.ItemDelay = time.Duration(cfg.ItemDelayMS) * time.Millisecond
	rc.DryRun = dryRun
	return rc
}
