package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valura/notification/internal/broker"
	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
)

// QueueHandlers returns the broker handler of every channel queue
func (s *Notification) QueueHandlers() map[models.Channel]broker.Handler {
	return map[models.Channel]broker.Handler{
		models.ChannelEmail: s.handleEmail,
		models.ChannelSMS:   s.handleSMS,
		models.ChannelPush:  s.handlePush,
	}
}

func (s *Notification) handleEmail(ctx context.Context, body []byte) error {
	var msg email.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return broker.Permanent(fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}
	_, err := s.SendEmail(ctx, msg)
	return settle(err)
}

func (s *Notification) handleSMS(ctx context.Context, body []byte) error {
	var msg SMSMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return broker.Permanent(fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}
	_, err := s.SendSMS(ctx, msg)
	return settle(err)
}

func (s *Notification) handlePush(ctx context.Context, body []byte) error {
	_, err := s.SendPush(ctx, body)
	return settle(err)
}

// settle marks rejections as permanent so the broker does not keep them around
func settle(err error) error {
	if IsRejection(err) {
		return broker.Permanent(err)
	}
	return err
}
