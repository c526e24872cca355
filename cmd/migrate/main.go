// This file prepares the notification store without starting the server
// How to run:
// go run cmd/migrate/main.go                         # Use the configured database URL
// go run cmd/migrate/main.go -db sqlite://local.db   # Override the database URL
// go run cmd/migrate/main.go -retries 10             # Wait longer for the database
package main

import (
	"context"
	"flag"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/joho/godotenv"

	"github.com/valura/notification/config"
	"github.com/valura/notification/internal/app"
	"github.com/valura/notification/internal/constants"
	"github.com/valura/notification/internal/logger"
)

func main() {
	// A missing .env is fine, the environment still applies
	_ = godotenv.Load()

	var (
		dbURLFlag  = flag.String("db", "", "Database URL (optional, defaults to the configuration)")
		configFile = flag.String("config", config.GetEnv(constants.EnvConfigFile, constants.DefaultConfigFile), "Path to the configuration file")
		retries    = flag.Uint("retries", 5, "Number of connection retries")
		retryWait  = flag.Duration("retry-wait", 3*time.Second, "Wait time between retries")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitializeAndConfigure(logger.Options{Level: cfg.Log.Level})

	// Use command line flag if provided, otherwise the configuration
	if *dbURLFlag != "" {
		cfg.Database.URL = *dbURLFlag
	}

	ctx := context.Background()
	// Opening the stores migrates relational schemas and creates document indexes
	err = retry.Do(func() error {
		_, closeDB, err := app.OpenStores(ctx, cfg.Database)
		if err != nil {
			return err
		}
		return closeDB(ctx)
	},
		retry.Attempts(*retries),
		retry.Delay(*retryWait),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("Database not ready (attempt %d/%d): %v", n+1, *retries, err)
		}),
	)
	if err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Store schema is up to date")
}
