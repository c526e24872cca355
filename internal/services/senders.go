package services

import (
	"context"

	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/logger"
)

// EmailSender delivers email messages. *email.Service implements it.
type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
	ProviderName() string
}

// ChannelSender delivers a notification on a channel without provider specific payloads
type ChannelSender interface {
	Send(ctx context.Context, recipient, title, body string) error
	Name() string
}

// PlaceholderSenderName is the provider name reported by PlaceholderSender
const PlaceholderSenderName = "placeholder"

// PlaceholderSender accepts every notification without delivering it. It
// stands in for the SMS and push gateways.
type PlaceholderSender struct {
	channel string
}

// NewPlaceholderSender creates a placeholder for the named channel
func NewPlaceholderSender(channel string) *PlaceholderSender {
	return &PlaceholderSender{channel: channel}
}

// Send implements ChannelSender
func (p *PlaceholderSender) Send(_ context.Context, recipient, title, _ string) error {
	logger.Infof("%s to %s accepted by placeholder sender (title: %s)", p.channel, recipient, title)
	return nil
}

// Name implements ChannelSender
func (p *PlaceholderSender) Name() string {
	return PlaceholderSenderName
}
