package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/prep/internal/config"
	"github.com/JonMunkholm/prep/internal/core"
	"github.com/JonMunkholm/prep/internal/logging"
	"github.com/JonMunkholm/prep/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		slog.Error("invalid service options", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Table export is optional; without a database the service still runs.
	var db core.Beginner
	if cfg.Database.Enabled() {
		pool, err := connect(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		db = pool
	} else {
		slog.Info("no database configured, table export disabled")
	}

	service := core.NewService(db, opts)
	slog.Info("operations registered", "count", len(service.Operations()))

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartJanitor(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.UploadLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for ingestions to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			} else {
				slog.Info("all ingestions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// connect opens and verifies the export pool.
func connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
