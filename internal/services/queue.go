package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/logger"
)

// ErrNoPreference is returned when a recipient must have a preference before anything is queued for them
var ErrNoPreference = errors.New("user preferences not found")

// Publisher hands payloads to the queue of a channel
type Publisher interface {
	Publish(ctx context.Context, channel models.Channel, payload interface{}) (string, error)
}

// Queue turns API requests into channel payloads and publishes them
type Queue struct {
	publisher   Publisher
	preferences PreferenceStore
}

// NewQueueService creates a new queue service
func NewQueueService(publisher Publisher, preferences PreferenceStore) *Queue {
	return &Queue{
		publisher:   publisher,
		preferences: preferences,
	}
}

// Enqueue publishes a notification for a recipient that has a stored preference.
// The channel token of the preference becomes the address when there is one.
// Every payload carries the recipient id, so the consumer applies the
// preference, duplicate and frequency checks to the recipient and not to the address.
func (q *Queue) Enqueue(ctx context.Context, recipientID string, channel models.Channel, title, body string) (string, error) {
	pref, err := q.preferences.GetByRecipient(ctx, recipientID)
	if err != nil {
		return "", err
	}
	if pref == nil {
		return "", fmt.Errorf("%w for recipient: %s", ErrNoPreference, recipientID)
	}

	address := recipientID
	for _, c := range pref.Channels {
		if c.Type == channel && c.Token != "" {
			address = c.Token
			break
		}
	}

	switch channel {
	case models.ChannelEmail:
		return q.EnqueueEmail(ctx, email.Message{To: address, Subject: title, Body: body, RecipientID: recipientID})
	case models.ChannelSMS:
		return q.EnqueueSMS(ctx, SMSMessage{Phone: address, Message: body, RecipientID: recipientID})
	case models.ChannelPush:
		return q.publish(ctx, models.ChannelPush, PushMessage{RecipientID: recipientID, Title: &title, Body: &body})
	default:
		return "", fmt.Errorf("%w: unsupported channel %q", ErrInvalidMessage, channel)
	}
}

// EnqueueEmail publishes an email message to the email queue
func (q *Queue) EnqueueEmail(ctx context.Context, msg email.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return q.publish(ctx, models.ChannelEmail, msg)
}

// EnqueueSMS publishes an SMS message to the sms queue
func (q *Queue) EnqueueSMS(ctx context.Context, msg SMSMessage) (string, error) {
	if msg.Phone == "" {
		return "", fmt.Errorf("%w: sms message has no phone", ErrInvalidMessage)
	}
	return q.publish(ctx, models.ChannelSMS, msg)
}

// EnqueuePush publishes a raw push payload to the push queue after checking it names a recipient
func (q *Queue) EnqueuePush(ctx context.Context, raw []byte) (string, error) {
	if _, _, _, err := ParsePushMessage(raw); err != nil {
		return "", err
	}
	return q.publish(ctx, models.ChannelPush, json.RawMessage(raw))
}

func (q *Queue) publish(ctx context.Context, channel models.Channel, payload interface{}) (string, error) {
	id, err := q.publisher.Publish(ctx, channel, payload)
	if err != nil {
		logger.Errorf("Failed to queue %s message: %v", channel, err)
		return "", err
	}
	logger.Debugf("Queued %s message %s", channel, id)
	return id, nil
}
