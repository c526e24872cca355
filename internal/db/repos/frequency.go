package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/valura/notification/internal/db/models"
)

// FrequencyRepository handles database operations for notification frequency rows
type FrequencyRepository struct {
	db *gorm.DB
}

// NewFrequencyRepository creates a new instance of FrequencyRepository
func NewFrequencyRepository(db *gorm.DB) *FrequencyRepository {
	return &FrequencyRepository{
		db: db,
	}
}

// Get retrieves the row for a recipient, channel and day. A missing row yields (nil, nil).
func (r *FrequencyRepository) Get(ctx context.Context, recipientID string, channel models.Channel, date string) (*models.NotificationFrequency, error) {
	var f models.NotificationFrequency
	err := r.db.WithContext(ctx).Where(models.NotificationFrequency{
		RecipientID: recipientID,
		ChannelType: channel,
		Date:        date,
	}).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByRecipient retrieves every channel row of a recipient for one day
func (r *FrequencyRepository) ListByRecipient(ctx context.Context, recipientID string, date string) ([]models.NotificationFrequency, error) {
	var out []models.NotificationFrequency
	err := r.db.WithContext(ctx).Where(models.NotificationFrequency{
		RecipientID: recipientID,
		Date:        date,
	}).Order(models.FrequencyChannelField).Find(&out).Error
	return out, err
}

// Save inserts the row or, when one exists for the same recipient, channel
// and day, overwrites its count and last sent time
func (r *FrequencyRepository) Save(ctx context.Context, f *models.NotificationFrequency) error {
	if f.ID != "" {
		res := r.db.WithContext(ctx).Model(&models.NotificationFrequency{}).
			Where("id = ?", f.ID).
			Updates(map[string]interface{}{
				"last_sent_at":            f.LastSentAt,
				"daily_count":             f.DailyCount,
				models.FrequencyDateField: f.Date,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: models.FrequencyRecipientField},
			{Name: models.FrequencyChannelField},
			{Name: models.FrequencyDateField},
		},
		DoUpdates: clause.AssignmentColumns([]string{"last_sent_at", "daily_count"}),
	}).Create(f).Error
}
