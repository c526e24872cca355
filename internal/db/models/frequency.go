package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the layout of NotificationFrequency.Date
const DateLayout = "2006-01-02"

// Field names for the frequency model
const (
	FrequencyRecipientField = "recipient_id"
	FrequencyChannelField   = "channel_type"
	FrequencyDateField      = "date"
)

// NotificationFrequency tracks how often a recipient was notified on a channel during one day
type NotificationFrequency struct {
	ID          string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	RecipientID string    `json:"recipient_id" bson:"recipient_id" gorm:"not null;uniqueIndex:idx_frequency_day,priority:1"`
	ChannelType Channel   `json:"channel_type" bson:"channel_type" gorm:"not null;uniqueIndex:idx_frequency_day,priority:2"`
	LastSentAt  time.Time `json:"last_sent_at" bson:"last_sent_at"`
	DailyCount  int       `json:"daily_count" bson:"daily_count" gorm:"not null;default:0"`
	Date        string    `json:"date" bson:"date" gorm:"size:10;not null;uniqueIndex:idx_frequency_day,priority:3"`
}

// TableName keeps the relational table aligned with the document collection
func (NotificationFrequency) TableName() string {
	return FrequencyCollection
}

// DayOf returns the frequency bucket for t, always in UTC
func DayOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NewNotificationFrequency creates a frequency row for the day of now
func NewNotificationFrequency(recipientID string, channel Channel, lastSentAt time.Time, dailyCount int, now time.Time) *NotificationFrequency {
	return &NotificationFrequency{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		ChannelType: channel,
		LastSentAt:  lastSentAt,
		DailyCount:  dailyCount,
		Date:        DayOf(now),
	}
}

// Record registers one more sent notification at now. A row from a previous
// day starts counting again from one.
func (f *NotificationFrequency) Record(now time.Time) {
	today := DayOf(now)
	if f.Date != today {
		f.Date = today
		f.DailyCount = 1
	} else {
		f.DailyCount++
	}
	f.LastSentAt = now
}

// BeforeCreate is a GORM hook that runs before creating a new frequency row
func (f *NotificationFrequency) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.RecipientID == "" {
		return ErrEmptyRecipient
	}
	return nil
}
