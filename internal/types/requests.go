package types

import (
	"github.com/valura/notification/internal/db/models"
)

// NotificationRequest asks for a notification to be queued for a recipient on one channel
type NotificationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Channel     string `json:"channel" validate:"required,oneof=email sms push EMAIL SMS PUSH"`
	Title       string `json:"title" validate:"max=998"`
	Body        string `json:"body" validate:"required"`
}

// InitPreferenceRequest enables one channel per non-empty address
type InitPreferenceRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	PushToken   string `json:"push_token,omitempty"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// PreferenceChannel is one channel entry of an explicit preference update
type PreferenceChannel struct {
	Type    string `json:"type" validate:"required,oneof=email sms push EMAIL SMS PUSH"`
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

// PutPreferenceRequest replaces the channels of a recipient
type PutPreferenceRequest struct {
	Channels []PreferenceChannel `json:"channels" validate:"dive"`
}

// ToModel converts the request entries into preference channels
func (r PutPreferenceRequest) ToModel() []models.NotificationChannel {
	out := make([]models.NotificationChannel, 0, len(r.Channels))
	for _, c := range r.Channels {
		out = append(out, models.NotificationChannel{
			Type:    models.Channel(c.Type),
			Token:   c.Token,
			Enabled: c.Enabled,
		})
	}
	return out
}
