package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/valura/notification/internal/db/models"
)

// PreferenceRepository handles database operations for user preferences
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new instance of PreferenceRepository
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{
		db: db,
	}
}

// GetByRecipient retrieves the preference of a recipient. A missing row yields (nil, nil).
func (r *PreferenceRepository) GetByRecipient(ctx context.Context, recipientID string) (*models.UserPreference, error) {
	var p models.UserPreference
	err := r.db.WithContext(ctx).
		Where(models.PreferenceRecipientField+" = ?", recipientID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Replace deletes any preference of the recipient and stores p in its place
func (r *PreferenceRepository) Replace(ctx context.Context, p *models.UserPreference) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.PreferenceRecipientField+" = ?", p.RecipientID).
			Delete(&models.UserPreference{}).Error; err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

// DeleteByRecipient removes the preference of a recipient and reports whether one existed
func (r *PreferenceRepository) DeleteByRecipient(ctx context.Context, recipientID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where(models.PreferenceRecipientField+" = ?", recipientID).
		Delete(&models.UserPreference{})
	return res.RowsAffected > 0, res.Error
}
