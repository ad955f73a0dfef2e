package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/config"
	"github.com/glizzus/sound-clips/internal/datalayer"
	"github.com/glizzus/sound-clips/internal/eventlog"
	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/handler"
	"github.com/glizzus/sound-clips/internal/metrics"
	"github.com/glizzus/sound-clips/internal/playback"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/soundboard"
	"github.com/glizzus/sound-clips/internal/voice"
	"github.com/redis/go-redis/v9"
)

func playbackEvents(ctx context.Context, redisConfig *config.RedisConfig) (playback.EventHandler, func(), error) {
	handlers := playback.MultiEventHandler{
		&playback.LoggingEventHandler{Logger: slog.Default()},
		metrics.NewPlaybackMetrics(metrics.Registry),
	}
	if !redisConfig.Enabled() {
		return handlers, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	handlers = append(handlers, eventlog.NewRedisEventLog(rdb, redisConfig.Stream))

	return handlers, func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", addr)
	return server
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load storage config: %w", err)
	}
	playbackConfig, err := config.NewPlaybackConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	metricsConfig, err := config.NewMetricsConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load metrics config: %w", err)
	}

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

	events, closeEvents, err := playbackEvents(ctx, redisConfig)
	if err != nil {
		return err
	}
	defer closeEvents()

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	coordinator := playback.NewCoordinator(
		voice.NewConnector(session, slog.Default()),
		voice.NewPresence(session),
		playback.QueueOptions{
			ConnectTimeout: playbackConfig.ConnectTimeout,
			Events:         events,
		},
	)
	defer coordinator.Close()

	catalog := repository.NewPostgresClipRepository(pool, &generator.UUIDV4Generator{})
	board := soundboard.NewService(
		catalog,
		clipstore.New(blobs, slog.Default()),
		coordinator,
		soundboard.Options{MaxClipSize: storageConfig.MaxClipSize},
	)

	interactionHandler := handler.NewInteractionHandler(board, handler.Options{
		Limiter: handler.NewUserLimiter(playbackConfig.CommandRate),
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		interactionHandler(s, i)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.CommandGuildID()); err != nil {
		return err
	}

	if metricsConfig.Addr != "" {
		server := serveMetrics(metricsConfig.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("Shutting down")
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
