package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StoryBuilder/internal/app"
	"StoryBuilder/internal/config"
	"StoryBuilder/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.Input.Ref = os.Args[1]
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
