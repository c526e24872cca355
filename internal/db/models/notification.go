package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Field names for the notification model
const (
	NotificationStatusField    = "status"
	NotificationRecipientField = "recipient_id"
	NotificationChannelField   = "channel_type"
	NotificationHashField      = "content_hash"
	NotificationCreatedAtField = "created_at"
	NotificationUpdatedAtField = "updated_at"
)

// NotificationStatus represents the current state of a notification
type NotificationStatus string

// Notification status constants
const (
	// NotificationStatusUnknown is returned for unparseable input and is never stored
	NotificationStatusUnknown NotificationStatus = "unknown"
	// NotificationStatusPending indicates the notification has been accepted but not checked yet
	NotificationStatusPending NotificationStatus = "pending"
	// NotificationStatusProcessing indicates the notification passed the checks and is being dispatched
	NotificationStatusProcessing NotificationStatus = "processing"
	// NotificationStatusDelivered indicates the provider accepted the notification
	NotificationStatusDelivered NotificationStatus = "delivered"
	// NotificationStatusFailed indicates a provider or store failure
	NotificationStatusFailed NotificationStatus = "failed"
	// NotificationStatusDuplicate indicates an identical notification was delivered recently
	NotificationStatusDuplicate NotificationStatus = "duplicate"
	// NotificationStatusBlocked indicates the recipient disabled the channel
	NotificationStatusBlocked NotificationStatus = "blocked"
	// NotificationStatusBlockedFrequency indicates the minimum send interval was not respected
	NotificationStatusBlockedFrequency NotificationStatus = "blocked_frequency"
	// NotificationStatusBlockedDailyLimit indicates the daily cap for the channel was reached
	NotificationStatusBlockedDailyLimit NotificationStatus = "blocked_daily_limit"
)

// notificationStatuses are the statuses a notification can be stored with
var notificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusProcessing,
	NotificationStatusDelivered,
	NotificationStatusFailed,
	NotificationStatusDuplicate,
	NotificationStatusBlocked,
	NotificationStatusBlockedFrequency,
	NotificationStatusBlockedDailyLimit,
}

// String returns the string representation of the notification status
func (s NotificationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected
func (s NotificationStatus) IsTerminal() bool {
	switch s {
	case NotificationStatusPending, NotificationStatusProcessing, NotificationStatusUnknown:
		return false
	default:
		return true
	}
}

// ParseNotificationStatus converts a string to a NotificationStatus.
// Upper-case names (BLOCKED_DAILY_LIMIT) are accepted as well.
func ParseNotificationStatus(str string) (NotificationStatus, error) {
	lower := strings.ToLower(strings.TrimSpace(str))
	for _, s := range notificationStatuses {
		if string(s) == lower {
			return s, nil
		}
	}
	return NotificationStatusUnknown, fmt.Errorf("invalid notification status: %s", str)
}

// UnmarshalJSON implements json.Unmarshaler for NotificationStatus
func (s *NotificationStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseNotificationStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Channel is the medium a notification is delivered through
type Channel string

// Supported channels
const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels lists every supported channel
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}

// String returns the string representation of the channel
func (c Channel) String() string {
	return string(c)
}

// ParseChannel converts a string to a Channel, ignoring case
func ParseChannel(str string) (Channel, error) {
	lower := strings.ToLower(strings.TrimSpace(str))
	for _, c := range Channels {
		if string(c) == lower {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid channel: %s", str)
}

// NotificationResponse is the outcome recorded on a notification
type NotificationResponse struct {
	Success   bool      `json:"success" bson:"success"`
	Message   string    `json:"message" bson:"message" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewResponse creates a response stamped with the given time
func NewResponse(success bool, message string, now time.Time) NotificationResponse {
	return NotificationResponse{
		Success:   success,
		Message:   message,
		Timestamp: now,
	}
}

// Notification is a single delivery request tracked through its lifecycle
type Notification struct {
	ID               string               `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	RecipientID      string               `json:"recipient_id" bson:"recipient_id" gorm:"not null;index:idx_notification_dedup,priority:1"`
	Title            string               `json:"title" bson:"title"`
	Body             string               `json:"body" bson:"body" gorm:"type:text"`
	Status           NotificationStatus   `json:"status" bson:"status" gorm:"not null;index"`
	DeliveryAttempts int                  `json:"delivery_attempts" bson:"delivery_attempts" gorm:"not null;default:0"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at" gorm:"index:idx_notification_dedup,priority:4"`
	UpdatedAt        time.Time            `json:"updated_at" bson:"updated_at" gorm:"autoUpdateTime:false"`
	Response         NotificationResponse `json:"response" bson:"response" gorm:"embedded;embeddedPrefix:response_"`
	ContentHash      string               `json:"content_hash" bson:"content_hash" gorm:"size:64;index:idx_notification_dedup,priority:3"`
	ChannelType      Channel              `json:"channel_type" bson:"channel_type" gorm:"not null;index:idx_notification_dedup,priority:2"`
}

// TableName keeps the relational table aligned with the document collection
func (Notification) TableName() string {
	return NotificationsCollection
}

// NewNotification creates a pending notification with its content hash computed
func NewNotification(recipientID, title, body string, channel Channel, now time.Time) *Notification {
	return &Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		ChannelType: channel,
		Status:      NotificationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ContentHash: ContentHash(recipientID, channel, title, body),
	}
}

// ContentHash returns the hex SHA-256 digest used for deduplication
func ContentHash(recipientID string, channel Channel, title, body string) string {
	sum := sha256.Sum256([]byte(recipientID + ":" + string(channel) + ":" + title + ":" + body))
	return hex.EncodeToString(sum[:])
}

// Validate ensures that the notification data is valid
func (n *Notification) Validate() error {
	if n.RecipientID == "" {
		return ErrEmptyRecipient
	}
	if _, err := ParseChannel(string(n.ChannelType)); err != nil {
		return err
	}
	return nil
}

// SetOutcome moves the notification to a status and records the response
func (n *Notification) SetOutcome(status NotificationStatus, success bool, message string, now time.Time) {
	n.Status = status
	n.Response = NewResponse(success, message, now)
	n.UpdatedAt = now
}

// BeforeCreate is a GORM hook that runs before creating a new notification
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = NotificationStatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.ContentHash == "" {
		n.ContentHash = ContentHash(n.RecipientID, n.ChannelType, n.Title, n.Body)
	}
	return n.Validate()
}
