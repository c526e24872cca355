package email

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"

	"github.com/valura/notification/internal/logger"
)

// Service sends email through the configured provider
type Service struct {
	provider Provider
}

// NewService creates a new email service
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// ProviderName returns the name of the provider in use
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Send delivers msg, refusing early when the provider is not configured.
// Errors no retry can fix are marked with retry.Unrecoverable.
func (s *Service) Send(ctx context.Context, msg Message) error {
	name := s.provider.Name()
	logger.Infof("Using %s email provider to send notification to: %s", name, msg.To)

	if !s.provider.Configured() {
		logger.Errorf("%s email provider is not properly configured", name)
		return retry.Unrecoverable(fmt.Errorf("%s email provider is not properly configured", name))
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		logger.Errorf("Error occurred while sending email via %s: %v", name, err)
		return fmt.Errorf("error sending email via %s: %w", name, err)
	}
	return nil
}
