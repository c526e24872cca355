// Package repos implements the notification stores on top of gorm
package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/valura/notification/internal/db/models"
)

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// Create creates a new notification in the database
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// Update saves every field of an existing notification
func (r *NotificationRepository) Update(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		return fmt.Errorf("cannot update notification without id")
	}
	return r.db.WithContext(ctx).Save(n).Error
}

// GetByID retrieves a notification by ID. A missing row yields (nil, nil).
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List retrieves notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Notification, error) {
	var out []models.Notification
	err := r.listQuery(ctx, opts).Find(&out).Error
	return out, err
}

// ListByRecipient retrieves the notifications of one recipient, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, opts *models.ListOptions) ([]models.Notification, error) {
	var out []models.Notification
	err := r.listQuery(ctx, opts).
		Where(models.NotificationRecipientField+" = ?", recipientID).
		Find(&out).Error
	return out, err
}

// Latest retrieves the most recently created notification of a recipient.
// A recipient without notifications yields (nil, nil).
func (r *NotificationRepository) Latest(ctx context.Context, recipientID string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).
		Where(models.NotificationRecipientField+" = ?", recipientID).
		Order(models.NotificationCreatedAtField + " DESC").
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FindDuplicates returns notifications with the same recipient, channel and
// content hash created at or after since
func (r *NotificationRepository) FindDuplicates(ctx context.Context, recipientID string, channel models.Channel, contentHash string, since time.Time) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where(models.NotificationRecipientField+" = ?", recipientID).
		Where(models.NotificationChannelField+" = ?", channel).
		Where(models.NotificationHashField+" = ?", contentHash).
		Where(models.NotificationCreatedAtField+" >= ?", since).
		Order(models.NotificationCreatedAtField + " ASC").
		Find(&out).Error
	return out, err
}

// ListStale returns up to limit notifications in status that were last updated before olderThan
func (r *NotificationRepository) ListStale(ctx context.Context, status models.NotificationStatus, olderThan time.Time, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := r.db.WithContext(ctx).
		Where(models.NotificationStatusField+" = ?", status).
		Where(models.NotificationUpdatedAtField+" < ?", olderThan).
		Order(models.NotificationUpdatedAtField + " ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *NotificationRepository) listQuery(ctx context.Context, opts *models.ListOptions) *gorm.DB {
	o := opts.Normalize()
	query := r.db.WithContext(ctx).
		Order(models.NotificationCreatedAtField + " DESC").
		Limit(o.Limit).
		Offset(o.Offset)
	if o.Status != nil {
		query = query.Where(models.NotificationStatusField+" = ?", *o.Status)
	}
	if o.Channel != "" {
		query = query.Where(models.NotificationChannelField+" = ?", o.Channel)
	}
	return query
}
