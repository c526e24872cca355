package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreferenceRecipientField is the field name for the preference recipient
const PreferenceRecipientField = "recipient_id"

// NotificationChannel is one delivery address a recipient accepts notifications on
type NotificationChannel struct {
	Type    Channel `json:"type" bson:"type"`
	Token   string  `json:"token" bson:"token"`
	Enabled bool    `json:"enabled" bson:"enabled"`
}

// UserPreference holds the channels a recipient opted into
type UserPreference struct {
	ID          string                `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	RecipientID string                `json:"recipient_id" bson:"recipient_id" gorm:"not null;uniqueIndex"`
	Channels    []NotificationChannel `json:"channels" bson:"notification" gorm:"serializer:json"`
}

// TableName keeps the relational table aligned with the document collection
func (UserPreference) TableName() string {
	return PreferencesCollection
}

// NewUserPreference creates a preference for the recipient
func NewUserPreference(recipientID string, channels []NotificationChannel) *UserPreference {
	return &UserPreference{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Channels:    channels,
	}
}

// ChannelEnabled reports whether any enabled entry matches the channel
func (p *UserPreference) ChannelEnabled(channel Channel) bool {
	for _, c := range p.Channels {
		if strings.EqualFold(string(c.Type), string(channel)) && c.Enabled {
			return true
		}
	}
	return false
}

// Validate ensures that the preference data is valid
func (p *UserPreference) Validate() error {
	if p.RecipientID == "" {
		return ErrEmptyRecipient
	}
	for i, c := range p.Channels {
		if _, err := ParseChannel(string(c.Type)); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new preference
func (p *UserPreference) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p.Validate()
}
