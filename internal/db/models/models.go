package models

import "errors"

const (
	// DefaultLimit is the max number of rows that are retrieved from the store per listing API call
	DefaultLimit = 50
	// MaxLimit caps client supplied limits
	MaxLimit = 1000
)

// Collection (and table) names shared by the relational and document stores
const (
	NotificationsCollection = "notifications"
	FrequencyCollection     = "notification_frequency"
	PreferencesCollection   = "user_preferences"
)

// ErrEmptyRecipient is returned when a record has no recipient
var ErrEmptyRecipient = errors.New("recipient id cannot be empty")

// ListOptions represents pagination and filtering options for list operations
type ListOptions struct {
	Limit   int                 `json:"limit"`            // Number of items to return
	Offset  int                 `json:"offset"`           // Number of items to skip
	Status  *NotificationStatus `json:"status,omitempty"` // Filter by notification status
	Channel Channel             `json:"channel,omitempty"`
}

// Normalize clamps the limit and offset into their allowed ranges.
// A nil receiver yields the defaults.
func (o *ListOptions) Normalize() ListOptions {
	if o == nil {
		return ListOptions{Limit: DefaultLimit}
	}
	out := *o
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Limit > MaxLimit {
		out.Limit = MaxLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}
