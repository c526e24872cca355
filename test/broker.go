package test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/valura/notification/internal/broker"
	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
)

// Settlement is what the broker would have done with one message
type Settlement struct {
	MessageID string
	Channel   models.Channel
	Err       error
}

// Acked reports whether the message would have been acknowledged
func (s Settlement) Acked() bool {
	return s.Err == nil
}

// Rejected reports whether the message would have been rejected without requeue
func (s Settlement) Rejected() bool {
	return broker.IsPermanent(s.Err)
}

// InlineBroker hands published messages straight to the queue handler of their channel
type InlineBroker struct {
	handlers map[models.Channel]broker.Handler

	mu          sync.Mutex
	settlements []Settlement
}

// NewInlineBroker creates a broker delivering to handlers
func NewInlineBroker(handlers map[models.Channel]broker.Handler) *InlineBroker {
	return &InlineBroker{handlers: handlers}
}

// Publish runs the channel handler on the JSON encoded payload before returning
func (b *InlineBroker) Publish(ctx context.Context, channel models.Channel, payload interface{}) (string, error) {
	h, ok := b.handlers[channel]
	if !ok {
		return "", fmt.Errorf("no queue bound for channel %s", channel)
	}

	var body []byte
	if raw, ok := payload.(json.RawMessage); ok {
		body = raw
	} else {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return "", fmt.Errorf("failed to encode %s message: %w", channel, err)
		}
	}

	id := uuid.NewString()
	err := h(ctx, body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.settlements = append(b.settlements, Settlement{MessageID: id, Channel: channel, Err: err})
	return id, nil
}

// Settlements returns every message handled so far, oldest first
func (b *InlineBroker) Settlements() []Settlement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Settlement(nil), b.settlements...)
}

// RecordingEmailSender accepts every email and keeps a copy
type RecordingEmailSender struct {
	mu   sync.Mutex
	sent []email.Message
}

// Send implements services.EmailSender
func (r *RecordingEmailSender) Send(_ context.Context, msg email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// ProviderName implements services.EmailSender
func (r *RecordingEmailSender) ProviderName() string {
	return "Recording"
}

// Messages returns the emails sent so far
func (r *RecordingEmailSender) Messages() []email.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]email.Message(nil), r.sent...)
}
