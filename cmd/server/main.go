package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"vocabquiz/internal/app"
	"vocabquiz/internal/config"
	"vocabquiz/internal/logging"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Error("Server stopped")
	}
}
