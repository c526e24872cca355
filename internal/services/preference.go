package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/valura/notification/internal/db/models"
)

// Preference manages the channels recipients opted into
type Preference struct {
	store PreferenceStore
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(store PreferenceStore) *Preference {
	return &Preference{store: store}
}

// Init replaces the preference of a recipient with one enabled channel per non-empty address
func (s *Preference) Init(ctx context.Context, recipientID, emailAddr, pushToken, phone string) (*models.UserPreference, error) {
	var channels []models.NotificationChannel
	if emailAddr != "" {
		channels = append(channels, models.NotificationChannel{Type: models.ChannelEmail, Token: emailAddr, Enabled: true})
	}
	if pushToken != "" {
		channels = append(channels, models.NotificationChannel{Type: models.ChannelPush, Token: pushToken, Enabled: true})
	}
	if phone != "" {
		channels = append(channels, models.NotificationChannel{Type: models.ChannelSMS, Token: phone, Enabled: true})
	}
	return s.Upsert(ctx, recipientID, channels)
}

// Upsert replaces the preference of a recipient with the given channels
func (s *Preference) Upsert(ctx context.Context, recipientID string, channels []models.NotificationChannel) (*models.UserPreference, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreference, models.ErrEmptyRecipient)
	}
	for i := range channels {
		ch, err := models.ParseChannel(string(channels[i].Type))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPreference, err)
		}
		channels[i].Type = ch
	}

	p := models.NewUserPreference(recipientID, channels)
	if err := s.store.Replace(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	return p, nil
}

// Get retrieves the preference of a recipient
func (s *Preference) Get(ctx context.Context, recipientID string) (*models.UserPreference, error) {
	p, err := s.store.GetByRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("preference for %s: %w", recipientID, ErrNotFound)
	}
	return p, nil
}

// Exists reports whether the recipient has a preference
func (s *Preference) Exists(ctx context.Context, recipientID string) (bool, error) {
	p, err := s.store.GetByRecipient(ctx, recipientID)
	return p != nil, err
}

// Delete removes the preference of a recipient and reports whether one existed
func (s *Preference) Delete(ctx context.Context, recipientID string) (bool, error) {
	return s.store.DeleteByRecipient(ctx, recipientID)
}
