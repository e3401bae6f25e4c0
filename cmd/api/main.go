// Package main provides the entry point for the request log server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/narvanalabs/request-logs/internal/api"
	"github.com/narvanalabs/request-logs/internal/shutdown"
	"github.com/narvanalabs/request-logs/pkg/config"
	"github.com/narvanalabs/request-logs/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New(slog.LevelInfo, true).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.FromConfig(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log.Logger)

	server := api.NewServer(cfg, log.Logger)

	coord := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coord.Register(shutdown.NewServerComponent("api", server))

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Error("server error", "error", err)
			cancel(fmt.Errorf("server stopped: %w", err))
		}
	}()

	log.Info("serving request logs",
		"addr", cfg.Addr(),
		"log_path", cfg.LogPath(),
		"pagination", cfg.PaginationMode,
	)

	coord.WaitForSignal(ctx)
	log.Info("server stopped")

	code := coord.ExitCode()
	if ctx.Err() != nil {
		code = 1
	}
	os.Exit(code)
}
