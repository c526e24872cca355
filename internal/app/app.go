// Package app assembles the notification server from its configuration
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/valura/notification/config"
	"github.com/valura/notification/internal/broker"
	"github.com/valura/notification/internal/db"
	"github.com/valura/notification/internal/db/mongo"
	"github.com/valura/notification/internal/db/repos"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/events"
	"github.com/valura/notification/internal/logger"
	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/pkg/api/v1/handlers"
	"github.com/valura/notification/pkg/api/v1/routes"
)

// App is the running notification server: HTTP API, queue consumers and sweeper
type App struct {
	cfg      *config.Config
	fiber    *fiber.App
	conn     *broker.Connection
	service  *services.Notification
	closeDB  func(context.Context) error
	wg       sync.WaitGroup
	shutdown sync.Once
}

// New wires the stores, email provider, broker and HTTP API described by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, closeDB, err := OpenStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	provider, err := email.NewProvider(cfg.Email)
	if err != nil {
		_ = closeDB(ctx)
		return nil, fmt.Errorf("failed to create email provider: %w", err)
	}
	logger.Infof("Email provider: %s", provider.Name())

	svc := services.NewNotificationService(stores, email.NewService(provider), services.NotificationOptions{
		MinInterval:         cfg.Policy.MinInterval,
		MaxDaily:            cfg.Policy.MaxDaily,
		DeduplicationWindow: cfg.Policy.DeduplicationWindow,
		RetryAttempts:       cfg.Policy.RetryAttempts,
		RetryDelay:          cfg.Policy.RetryDelay,
	})

	conn, err := broker.Dial(ctx, cfg.RabbitMQ)
	if err != nil {
		_ = closeDB(ctx)
		return nil, err
	}
	pub, err := conn.Publisher()
	if err != nil {
		_ = conn.Close()
		_ = closeDB(ctx)
		return nil, err
	}

	api := handlers.NewAPIHandler(
		svc,
		services.NewQueueService(pub, stores.Preferences),
		services.NewPreferenceService(stores.Preferences),
	)

	return &App{
		cfg:     cfg,
		fiber:   NewFiberApp(api),
		conn:    conn,
		service: svc,
		closeDB: closeDB,
	}, nil
}

// NewFiberApp creates the HTTP app with the error handler, request logging and v1 routes
func NewFiberApp(api *handlers.APIHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(logger.APILogger())
	routes.RegisterRoutes(app, api.Notifications, api.Preferences)
	return app
}

// OpenStores connects to the backend selected by the database URL scheme and
// returns its stores with a function releasing the connection
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (services.Stores, func(context.Context) error, error) {
	backend, err := db.BackendOf(cfg.URL)
	if err != nil {
		return services.Stores{}, nil, err
	}

	if backend == db.BackendMongo {
		client, err := mongo.Connect(ctx, cfg.URL, cfg.Name)
		if err != nil {
			return services.Stores{}, nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return services.Stores{}, nil, err
		}
		database := client.Database()
		logger.Infof("Using %s store", backend)
		return services.Stores{
			Notifications: mongo.NewNotificationRepository(database),
			Frequencies:   mongo.NewFrequencyRepository(database),
			Preferences:   mongo.NewPreferenceRepository(database),
		}, client.Disconnect, nil
	}

	gormDB, err := db.New(db.Options{URL: cfg.URL, LogLevel: db.ParseLogLevel(cfg.LogLevel)})
	if err != nil {
		return services.Stores{}, nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Infof("Using %s store", backend)
	return services.Stores{
		Notifications: repos.NewNotificationRepository(gormDB),
		Frequencies:   repos.NewFrequencyRepository(gormDB),
		Preferences:   repos.NewPreferenceRepository(gormDB),
	}, func(context.Context) error { return db.Close(gormDB) }, nil
}

// Run starts the workers and serves HTTP until ctx is done or the listener
// fails, then shuts everything down
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events.LogOutcomes()
	events.Start(workerCtx)

	if err := a.conn.Consume(workerCtx, &a.wg, a.service.QueueHandlers(), a.cfg.RabbitMQ.ConsumerCount); err != nil {
		cancel()
		return errors.Join(err, a.Shutdown(context.Background()))
	}

	a.wg.Add(1)
	go services.LaunchSweeper(workerCtx, &a.wg, a.service, a.cfg.Sweeper.Interval, a.cfg.Sweeper.StaleAfter)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on port %s", a.cfg.Server.Port)
		if err := a.fiber.Listen(":" + a.cfg.Server.Port); err != nil {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-serverErrors:
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	cancel()
	return errors.Join(runErr, a.Shutdown(context.Background()))
}

// Shutdown stops the HTTP server, waits for the consumers and the sweeper,
// then closes the broker and the database
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.shutdown.Do(func() {
		if err := a.fiber.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		a.wg.Wait()
		if err := a.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("broker close: %w", err))
		}
		if err := a.closeDB(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
		logger.Info("Server stopped")
	})
	return errors.Join(errs...)
}
