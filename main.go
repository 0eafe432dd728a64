package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"agribuddy/internal/app"
	"agribuddy/internal/config"
	"agribuddy/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "agribuddy",
		Env:     cfg.Server.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})

	// Graceful shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		logger.Error("error closing resources", "error", err)
	}
	if runErr != nil {
		logger.Error("server stopped with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}
