package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-progress/internal/api"
	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/streak"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// setup wires the engine and its backends from cfg. The returned cleanup
// closes any opened connections.
func setup(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	loader, err := catalog.NewLoader(cfg.CatalogPath)
	if err != nil {
		return nil, cleanup, err
	}

	var opts []api.Option
	var db *database.DB
	if cfg.NeedsDatabase() {
		db, err = database.New(ctx, cfg.Database.URL, database.WithPoolSize(cfg.Database.MaxConns, cfg.Database.MinConns))
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, db.Close)
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db.Pool); err != nil {
				cleanup()
				return nil, func() {}, err
			}
		}
		opts = append(opts, api.WithHealthCheck("database", db.HealthCheck))
	}

	var streakRepo streak.Repository = streak.NewMemoryRepository()
	if cfg.NeedsCache() {
		c, err := cache.New(ctx, cfg.Cache.URL, cache.WithPoolSize(cfg.Cache.PoolSize))
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { c.Close() })
		streakRepo = streak.NewRedisRepository(c.Client)
		opts = append(opts, api.WithHealthCheck("cache", c.HealthCheck))
	}

	var repo progress.Repository = progress.NopRepository{}
	if cfg.Progress.Backend == config.BackendPostgres {
		pg, err := progress.NewPostgresRepository(db.Pool)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		repo = pg
	}

	var sink notify.Sink = notify.NewLogSink(slog.Default())
	if cfg.Notify.Backend == config.BackendPostgres {
		pgSink := notify.NewPostgresSink(db.Pool)
		sink = notify.MultiSink{sink, pgSink}
		opts = append(opts, api.WithNotifications(pgSink))
	}

	engine, err := progression.NewEngine(progression.EngineConfig{
		Catalog:    loader,
		Repository: repo,
		Sink:       sink,
		Streaks: streak.NewNotifier(streak.NotifierConfig{
			Repository:        streakRepo,
			Sink:              sink,
			Location:          cfg.Location(),
			MilestoneInterval: cfg.Streak.MilestoneInterval,
			Language:          cfg.Notify.Language,
		}),
		Weights:       progress.Weights{Video: cfg.Progress.VideoWeight, Quiz: cfg.Progress.QuizWeight},
		PassThreshold: cfg.Quiz.PassThreshold,
		Language:      cfg.Notify.Language,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	slog.Info("engine ready",
		"skills", len(loader.AllSkills()),
		"progress_backend", cfg.Progress.Backend,
		"streak_backend", cfg.Streak.Backend,
		"notify_backend", cfg.Notify.Backend,
	)
	return api.NewHandler(engine, opts...).Routes(), cleanup, nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
