package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/events"
	"github.com/valura/notification/internal/logger"
)

const (
	// DefaultSMSTitle is the title stored for SMS notifications
	DefaultSMSTitle = "SMS Notification"
	// DefaultPushTitle is the title stored for push notifications without one
	DefaultPushTitle = "Push Notification"
)

// NotificationOptions holds the pre-dispatch limits and delivery retry settings
type NotificationOptions struct {
	MinInterval         time.Duration
	MaxDaily            int
	DeduplicationWindow time.Duration
	RetryAttempts       uint
	RetryDelay          time.Duration
}

// DefaultNotificationOptions returns the limits used when none are configured
func DefaultNotificationOptions() NotificationOptions {
	return NotificationOptions{
		MinInterval:         2 * time.Second,
		MaxDaily:            500,
		DeduplicationWindow: 30 * time.Minute,
		RetryAttempts:       3,
		RetryDelay:          500 * time.Millisecond,
	}
}

// SMSMessage is an SMS as it travels on the sms queue
type SMSMessage struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`

	// RecipientID is the preference key of the addressee. Phone is used when it is empty.
	RecipientID string `json:"recipient_id,omitempty"`
}

// PushMessage is the documented shape of a push payload. Title and Body are
// optional: a missing title falls back to DefaultPushTitle and a missing body
// to the raw payload.
type PushMessage struct {
	RecipientID string  `json:"recipientId" validate:"required"`
	Title       *string `json:"title,omitempty"`
	Body        *string `json:"body,omitempty"`
}

// Notification runs notifications through the pre-dispatch checks, delivers
// them and records the outcome
type Notification struct {
	notifications NotificationStore
	frequencies   FrequencyStore
	preferences   PreferenceStore
	email         EmailSender
	sms           ChannelSender
	push          ChannelSender
	opts          NotificationOptions
	now           func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(stores Stores, emailSender EmailSender, opts NotificationOptions) *Notification {
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	return &Notification{
		notifications: stores.Notifications,
		frequencies:   stores.Frequencies,
		preferences:   stores.Preferences,
		email:         emailSender,
		sms:           NewPlaceholderSender("SMS"),
		push:          NewPlaceholderSender("Push"),
		opts:          opts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithSenders replaces the SMS and push senders
func (s *Notification) WithSenders(sms, push ChannelSender) *Notification {
	if sms != nil {
		s.sms = sms
	}
	if push != nil {
		s.push = push
	}
	return s
}

// SendEmail records and delivers an email notification
func (s *Notification) SendEmail(ctx context.Context, msg email.Message) (*models.Notification, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	logger.Infof("Received email request for to: %s with subject: %s", msg.To, msg.Subject)

	n := models.NewNotification(recipientKey(msg.RecipientID, msg.To), msg.Subject, msg.Body, models.ChannelEmail, s.now())
	return n, s.process(ctx, n, "Email", func(ctx context.Context) (string, error) {
		return s.email.ProviderName(), s.email.Send(ctx, msg)
	})
}

// SendSMS records and delivers an SMS notification
func (s *Notification) SendSMS(ctx context.Context, msg SMSMessage) (*models.Notification, error) {
	if strings.TrimSpace(msg.Phone) == "" {
		return nil, fmt.Errorf("%w: sms message has no phone", ErrInvalidMessage)
	}
	logger.Infof("Received SMS request for phone: %s", msg.Phone)

	n := models.NewNotification(recipientKey(msg.RecipientID, msg.Phone), DefaultSMSTitle, msg.Message, models.ChannelSMS, s.now())
	return n, s.process(ctx, n, "SMS", func(ctx context.Context) (string, error) {
		return s.sms.Name(), s.sms.Send(ctx, msg.Phone, n.Title, n.Body)
	})
}

// recipientKey returns the id the checks and counters are keyed by
func recipientKey(recipientID, address string) string {
	if recipientID != "" {
		return recipientID
	}
	return address
}

// ParsePushMessage extracts recipient, title and body from a raw push payload
func ParsePushMessage(raw []byte) (recipientID, title, body string, err error) {
	var msg PushMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", "", "", fmt.Errorf("%w: invalid push message format: %v", ErrInvalidMessage, err)
	}
	if msg.RecipientID == "" {
		return "", "", "", fmt.Errorf("%w: push message must contain a 'recipientId' field", ErrInvalidMessage)
	}

	title, body = DefaultPushTitle, string(raw)
	if msg.Title != nil {
		title = *msg.Title
	}
	if msg.Body != nil {
		body = *msg.Body
	}
	return msg.RecipientID, title, body, nil
}

// SendPush records and delivers a push notification from its raw JSON payload
func (s *Notification) SendPush(ctx context.Context, raw []byte) (*models.Notification, error) {
	recipientID, title, body, err := ParsePushMessage(raw)
	if err != nil {
		logger.Errorf("Failed to parse push message: %v", err)
		return nil, err
	}
	logger.Infof("Received Push Notification request for: %s", recipientID)

	n := models.NewNotification(recipientID, title, body, models.ChannelPush, s.now())
	return n, s.process(ctx, n, "Push notification", func(ctx context.Context) (string, error) {
		return s.push.Name(), s.push.Send(ctx, n.RecipientID, n.Title, n.Body)
	})
}

// process stores n, runs the pre-dispatch checks and, when they pass, delivers n
func (s *Notification) process(ctx context.Context, n *models.Notification, label string, send func(context.Context) (string, error)) error {
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	if err := s.preDispatch(ctx, n); err != nil {
		return err
	}
	return s.dispatch(ctx, n, label, send)
}

// preDispatch applies the checks in order: duplicate, preference, min
// interval, daily cap. A notification passing all of them moves to processing.
func (s *Notification) preDispatch(ctx context.Context, n *models.Notification) error {
	now := s.now()

	dup, err := s.findDelivered(ctx, n, now)
	if err != nil {
		return s.failPreDispatch(ctx, n, err)
	}
	if dup != nil {
		logger.Infof("Duplicate notification detected for %s. Original ID: %s", n.RecipientID, dup.ID)
		msg := fmt.Sprintf("Duplicate of notification %s sent at %s", dup.ID, dup.CreatedAt.UTC().Format(time.RFC3339))
		return s.reject(ctx, n, models.NotificationStatusDuplicate, msg, ErrDuplicate)
	}

	pref, err := s.preferences.GetByRecipient(ctx, n.RecipientID)
	if err != nil {
		return s.failPreDispatch(ctx, n, err)
	}
	if pref == nil {
		logger.Debugf("No preferences found for %s, assuming opt-in", n.RecipientID)
	} else if !pref.ChannelEnabled(n.ChannelType) {
		msg := fmt.Sprintf("Notification blocked by user preference for channel: %s", n.ChannelType)
		return s.reject(ctx, n, models.NotificationStatusBlocked, msg, ErrBlocked)
	}

	freq, err := s.frequencies.Get(ctx, n.RecipientID, n.ChannelType, models.DayOf(now))
	if err != nil {
		return s.failPreDispatch(ctx, n, err)
	}
	if freq == nil {
		freq = models.NewNotificationFrequency(n.RecipientID, n.ChannelType, time.Unix(0, 0).UTC(), 0, now)
	}

	if elapsed := now.Sub(freq.LastSentAt); elapsed < s.opts.MinInterval {
		wait := int64((s.opts.MinInterval - elapsed + time.Second - 1) / time.Second)
		msg := fmt.Sprintf("Notification rate limit hit for %s on channel %s due to min interval. Please wait %d seconds.",
			n.RecipientID, n.ChannelType, wait)
		return s.reject(ctx, n, models.NotificationStatusBlockedFrequency, msg, ErrRateLimited)
	}

	if freq.DailyCount >= s.opts.MaxDaily {
		msg := fmt.Sprintf("Notification daily limit hit for %s on channel %s. Max daily limit of %d reached.",
			n.RecipientID, n.ChannelType, s.opts.MaxDaily)
		return s.reject(ctx, n, models.NotificationStatusBlockedDailyLimit, msg, ErrDailyLimit)
	}

	n.Status = models.NotificationStatusProcessing
	n.UpdatedAt = s.now()
	if err := s.notifications.Update(ctx, n); err != nil {
		return s.failPreDispatch(ctx, n, err)
	}
	return nil
}

// findDelivered returns the first delivered notification with the same
// content inside the deduplication window
func (s *Notification) findDelivered(ctx context.Context, n *models.Notification, now time.Time) (*models.Notification, error) {
	dups, err := s.notifications.FindDuplicates(ctx, n.RecipientID, n.ChannelType, n.ContentHash, now.Add(-s.opts.DeduplicationWindow))
	if err != nil {
		return nil, err
	}
	for i := range dups {
		if dups[i].Status == models.NotificationStatusDelivered && dups[i].ID != n.ID {
			return &dups[i], nil
		}
	}
	return nil, nil
}

// recordTimeout bounds the writes that record an outcome
const recordTimeout = 10 * time.Second

// recordContext detaches outcome writes from the delivery context so a
// cancelled delivery still leaves a terminal row
func recordContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
}

// reject records a terminal pre-dispatch outcome and returns it wrapped in sentinel
func (s *Notification) reject(ctx context.Context, n *models.Notification, status models.NotificationStatus, msg string, sentinel error) error {
	logger.Warn(msg)
	n.SetOutcome(status, false, msg, s.now())
	rctx, cancel := recordContext(ctx)
	defer cancel()
	if err := s.notifications.Update(rctx, n); err != nil {
		return fmt.Errorf("failed to record %s outcome: %w", status, err)
	}
	events.Publish(events.EventFor(events.EventNotificationBlocked, n))
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// failPreDispatch marks n failed after a store error during the checks
func (s *Notification) failPreDispatch(ctx context.Context, n *models.Notification, cause error) error {
	logger.Errorf("Error during pre-dispatch checks for recipient %s: %v", n.RecipientID, cause)
	n.SetOutcome(models.NotificationStatusFailed, false, "Pre-dispatch error: "+cause.Error(), s.now())
	rctx, cancel := recordContext(ctx)
	defer cancel()
	if err := s.notifications.Update(rctx, n); err != nil {
		logger.Errorf("Failed to record pre-dispatch failure of %s: %v", n.ID, err)
	}
	events.Publish(events.EventFor(events.EventNotificationFailed, n))
	return fmt.Errorf("error during notification pre-dispatch: %w", cause)
}

// dispatch calls the provider with retries and records the final outcome
func (s *Notification) dispatch(ctx context.Context, n *models.Notification, label string, send func(context.Context) (string, error)) error {
	var provider string
	attempts := 0
	err := retry.Do(func() error {
		attempts++
		var err error
		provider, err = send(ctx)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(s.opts.RetryAttempts),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warnf("Delivery attempt %d for notification %s failed: %v", attempt+1, n.ID, err)
		}),
	)
	n.DeliveryAttempts += attempts

	rctx, cancel := recordContext(ctx)
	defer cancel()

	if err != nil {
		logger.Errorf("Error sending %s via provider for %s: %v", n.ChannelType, n.RecipientID, err)
		n.SetOutcome(models.NotificationStatusFailed, false, "Provider error: "+err.Error(), s.now())
		if uerr := s.notifications.Update(rctx, n); uerr != nil {
			logger.Errorf("Failed to record provider failure of %s: %v", n.ID, uerr)
		}
		events.Publish(events.EventFor(events.EventNotificationFailed, n))
		return fmt.Errorf("provider error: %w", err)
	}

	msg := fmt.Sprintf("%s sent successfully via %s.", label, provider)
	logger.Info(msg)
	n.SetOutcome(models.NotificationStatusDelivered, true, msg, s.now())
	if err := s.notifications.Update(rctx, n); err != nil {
		logger.Errorf("Failed to record delivery of %s: %v", n.ID, err)
	}
	s.updateFrequency(rctx, n)
	events.Publish(events.EventFor(events.EventNotificationDelivered, n))
	return nil
}

// updateFrequency counts a delivered notification against today's row. Errors are only logged.
func (s *Notification) updateFrequency(ctx context.Context, n *models.Notification) {
	now := s.now()
	freq, err := s.frequencies.Get(ctx, n.RecipientID, n.ChannelType, models.DayOf(now))
	if err != nil {
		logger.Errorf("Error updating notification frequency for %s: %v", n.RecipientID, err)
		return
	}
	if freq == nil {
		freq = models.NewNotificationFrequency(n.RecipientID, n.ChannelType, now, 1, now)
	} else {
		freq.Record(now)
	}
	if err := s.frequencies.Save(ctx, freq); err != nil {
		logger.Errorf("Error updating notification frequency for %s: %v", n.RecipientID, err)
		return
	}
	logger.Debugf("Notification frequency updated for %s: Channel %s, Count %d", n.RecipientID, n.ChannelType, freq.DailyCount)
}

// Stats returns today's counters of a recipient. An empty channel returns every channel.
func (s *Notification) Stats(ctx context.Context, recipientID string, channel models.Channel) ([]models.NotificationFrequency, error) {
	today := models.DayOf(s.now())
	if channel == "" {
		return s.frequencies.ListByRecipient(ctx, recipientID, today)
	}
	freq, err := s.frequencies.Get(ctx, recipientID, channel, today)
	if err != nil {
		return nil, err
	}
	if freq == nil {
		return []models.NotificationFrequency{}, nil
	}
	return []models.NotificationFrequency{*freq}, nil
}

// Get retrieves a notification by ID
func (s *Notification) Get(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return n, nil
}

// List retrieves notifications, newest first
func (s *Notification) List(ctx context.Context, opts *models.ListOptions) ([]models.Notification, error) {
	return s.notifications.List(ctx, opts)
}

// ListByRecipient retrieves the notifications of one recipient, newest first
func (s *Notification) ListByRecipient(ctx context.Context, recipientID string, opts *models.ListOptions) ([]models.Notification, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, opts)
}

// Latest retrieves the most recent notification of a recipient
func (s *Notification) Latest(ctx context.Context, recipientID string) (*models.Notification, error) {
	n, err := s.notifications.Latest(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("no notifications for %s: %w", recipientID, ErrNotFound)
	}
	return n, nil
}

// IsRejection reports whether err is a terminal pre-dispatch outcome or an invalid message
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrBlocked) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrDailyLimit)
}
