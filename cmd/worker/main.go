package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/config"
	"github.com/glizzus/sound-clips/internal/datalayer"
	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/schedule"
	"github.com/glizzus/sound-clips/internal/soundboard"
)

var (
	dryRun = flag.Bool("dry-run", false, "Print the upcoming sweep times and exit")
	once   = flag.Bool("once", false, "Sweep once immediately and exit")
)

func sweep(ctx context.Context, board *soundboard.Service) {
	start := time.Now()
	removed, err := board.CollectGarbage(ctx)
	if err != nil {
		slog.Error("failed to collect unreferenced clips", slog.Any("error", err))
		return
	}
	slog.Info(
		"Swept clip storage",
		slog.Int("removed", len(removed)),
		slog.Duration("took", time.Since(start)),
	)
}

func runWorkerForever() error {
	flag.Parse()
	slog.SetLogLoggerLevel(slog.LevelDebug)
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load storage config: %w", err)
	}

	if *dryRun {
		if storageConfig.GCCron == "" {
			slog.Info("Dry run mode: sweeping is disabled")
			return nil
		}
		upcoming, err := schedule.NextRunTimes(storageConfig.GCCron, 5)
		if err != nil {
			return fmt.Errorf("failed to compute sweep times: %w", err)
		}
		for _, at := range upcoming {
			slog.Info("Dry run mode: sweep would run", "runAt", at.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()
	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	blobs, err := datalayer.NewBlobStorageFromConfig(ctx, storageConfig)
	if err != nil {
		return fmt.Errorf("failed to create clip storage: %w", err)
	}

	board := soundboard.NewService(
		repository.NewPostgresClipRepository(pool, &generator.UUIDV4Generator{}),
		clipstore.New(blobs, slog.Default()),
		nil,
		soundboard.Options{MaxClipSize: storageConfig.MaxClipSize},
	)

	if *once {
		sweep(ctx, board)
		return nil
	}
	if storageConfig.GCCron == "" {
		slog.Warn("CLIP_GC_CRON is empty, nothing to do")
		return nil
	}

	slog.Info("Sweeping clip storage on a schedule", "cron", storageConfig.GCCron)
	err = schedule.Every(ctx, storageConfig.GCCron, func(ctx context.Context) {
		sweep(ctx, board)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := runWorkerForever(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
