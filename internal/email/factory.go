package email

import (
	"fmt"
	"strings"

	"github.com/valura/notification/config"
)

// Provider identifiers accepted in configuration
const (
	ProviderSMTP      = "smtp"
	ProviderMailchimp = "mailchimp"
)

// NewProvider builds the provider selected by cfg.Provider. An empty value selects SMTP.
func NewProvider(cfg config.EmailConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderSMTP:
		return NewSMTPProvider(cfg.SMTP), nil
	case ProviderMailchimp, "mandrill":
		return NewMandrillProvider(cfg.Mailchimp), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}
}
