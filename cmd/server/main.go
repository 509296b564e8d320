package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"sheetsplit/internal/config"
	"sheetsplit/internal/core"
	"sheetsplit/internal/history"
	"sheetsplit/internal/logging"
	"sheetsplit/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"default_key_column", cfg.Split.DefaultKeyColumn,
		"max_concurrent_runs", cfg.Split.MaxConcurrentRuns,
		"history_enabled", cfg.Database.HistoryEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Run history is optional: connect only when a database is configured
	var recorder core.RunRecorder
	var historyReader web.HistoryReader
	if cfg.Database.HistoryEnabled() {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		store, err := history.NewStore(ctx, pool)
		if err != nil {
			slog.Error("failed to init history store", "error", err)
			os.Exit(1)
		}
		recorder = store
		historyReader = store

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("run history enabled", "database", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("run history enabled")
		}
	}

	// Create the split service
	service := core.NewService(core.ServiceOptions{
		MaxConcurrentRuns: cfg.Split.MaxConcurrentRuns,
		MaxWaitTime:       cfg.Split.MaxWaitTime,
		RunTimeout:        cfg.Split.RunTimeout,
		Recorder:          recorder,
	})

	// Create server with config
	server, err := web.NewServer(service, cfg, historyReader)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
