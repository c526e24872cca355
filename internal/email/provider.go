// Package email sends notification emails through SMTP or Mailchimp Transactional
package email

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipient is returned for messages without a to address
var ErrNoRecipient = errors.New("email message has no recipient")

// Message is an email as it travels on the email queue
type Message struct {
	To            string                 `json:"to" validate:"required,email"`
	Cc            []string               `json:"cc,omitempty" validate:"omitempty,dive,email"`
	Bcc           []string               `json:"bcc,omitempty" validate:"omitempty,dive,email"`
	Subject       string                 `json:"subject"`
	Body          string                 `json:"body"`
	IsHTML        bool                   `json:"is_html"`
	From          string                 `json:"from,omitempty"`
	Headers       map[string]string      `json:"headers,omitempty"`
	Attachments   map[string][]byte      `json:"attachments,omitempty"` // name to content, base64 in JSON
	TemplateID    string                 `json:"template_id,omitempty"`
	TemplateData  map[string]interface{} `json:"template_data,omitempty"`
	MessageID     string                 `json:"message_id,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	ReplyTo       string                 `json:"reply_to,omitempty"`

	// RecipientID is the preference key of the addressee. To is used when it is empty.
	RecipientID string `json:"recipient_id,omitempty"`
}

// Validate checks the fields every provider needs
func (m *Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// Provider delivers email messages
type Provider interface {
	// Send delivers the message or returns why it could not
	Send(ctx context.Context, msg Message) error
	// Name is the human readable provider name
	Name() string
	// Configured reports whether the provider has the settings it needs
	Configured() bool
}
