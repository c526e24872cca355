package services

import (
	"context"
	"errors"
	"time"

	"github.com/valura/notification/internal/db/models"
)

// Sentinel errors returned by the services. Handlers map them to HTTP status
// codes and consumers to ack decisions with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate notification")
	ErrBlocked           = errors.New("blocked by user preference")
	ErrRateLimited       = errors.New("minimum send interval not reached")
	ErrDailyLimit        = errors.New("daily notification limit reached")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrInvalidPreference = errors.New("invalid preference")
)

// NotificationStore persists notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	Update(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, opts *models.ListOptions) ([]models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, opts *models.ListOptions) ([]models.Notification, error)
	Latest(ctx context.Context, recipientID string) (*models.Notification, error)
	FindDuplicates(ctx context.Context, recipientID string, channel models.Channel, contentHash string, since time.Time) ([]models.Notification, error)
	ListStale(ctx context.Context, status models.NotificationStatus, olderThan time.Time, limit int) ([]models.Notification, error)
}

// FrequencyStore persists the daily send counters
type FrequencyStore interface {
	Get(ctx context.Context, recipientID string, channel models.Channel, date string) (*models.NotificationFrequency, error)
	ListByRecipient(ctx context.Context, recipientID string, date string) ([]models.NotificationFrequency, error)
	Save(ctx context.Context, f *models.NotificationFrequency) error
}

// PreferenceStore persists user preferences
type PreferenceStore interface {
	GetByRecipient(ctx context.Context, recipientID string) (*models.UserPreference, error)
	Replace(ctx context.Context, p *models.UserPreference) error
	DeleteByRecipient(ctx context.Context, recipientID string) (bool, error)
}

// Stores groups the stores of one backend
type Stores struct {
	Notifications NotificationStore
	Frequencies   FrequencyStore
	Preferences   PreferenceStore
}
