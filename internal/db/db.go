// Package db provides database connectivity and operations
package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/valura/notification/internal/db/models"
)

// Backend identifies the store implementation selected by a database URL
type Backend string

// Supported backends
const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendMongo    Backend = "mongo"
)

const sqlitePrefix = "sqlite://"

// ErrUnsupportedScheme is returned for database URLs no backend understands
var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// BackendOf returns the backend for a database URL
func BackendOf(rawURL string) (Backend, error) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", fmt.Errorf("%w: no scheme in %q", ErrUnsupportedScheme, redact(rawURL))
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "sqlite":
		return BackendSQLite, nil
	case "mongodb", "mongodb+srv":
		return BackendMongo, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// Options represents relational database connection configuration options
type Options struct {
	URL      string
	LogLevel logger.LogLevel
}

// New opens a relational database (postgres or sqlite) and migrates the schema
func New(opts Options) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	backend, err := BackendOf(opts.URL)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch backend {
	case BackendPostgres:
		dialector = postgres.Open(opts.URL)
	case BackendSQLite:
		path := strings.TrimPrefix(opts.URL, sqlitePrefix)
		if path == "" {
			return nil, fmt.Errorf("no database target specified in URL: %s", opts.URL)
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("%w: %s is not a relational backend", ErrUnsupportedScheme, backend)
	}

	// Configure custom logger to ignore record not found errors
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Notification{},
		&models.NotificationFrequency{},
		&models.UserPreference{},
	)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ParseLogLevel converts a level name to a gorm log level, defaulting to warn
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// IsDuplicateKeyError checks if the given error is a unique constraint violation
func IsDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return errors.Is(postgres.Dialector{}.Translate(err), gorm.ErrDuplicatedKey)
}

// redact drops everything after the scheme so credentials never reach logs
func redact(rawURL string) string {
	if i := strings.Index(rawURL, "@"); i >= 0 {
		return "***" + rawURL[i:]
	}
	return rawURL
}
