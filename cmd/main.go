package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/valura/notification/config"
	"github.com/valura/notification/internal/app"
	"github.com/valura/notification/internal/constants"
	"github.com/valura/notification/internal/logger"
)

func main() {
	// A missing .env is fine, the environment still applies
	_ = godotenv.Load()

	cfg, err := config.Load(config.GetEnv(constants.EnvConfigFile, constants.DefaultConfigFile))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.InitializeAndConfigure(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}

	if err := server.Run(ctx); err != nil {
		logger.Fatalf("Server stopped with error: %v", err)
	}
}
