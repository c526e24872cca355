package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/valura/notification/config"
)

// SMTPProviderName is the name reported by the SMTP provider
const SMTPProviderName = "SMTP"

// SMTPProvider sends messages through an SMTP relay
type SMTPProvider struct {
	cfg config.SMTPConfig
}

// NewSMTPProvider creates a new SMTP provider
func NewSMTPProvider(cfg config.SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

// Name implements Provider
func (p *SMTPProvider) Name() string {
	return SMTPProviderName
}

// Configured implements Provider
func (p *SMTPProvider) Configured() bool {
	return p.cfg.Host != ""
}

// Send implements Provider
func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	m, err := p.buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(p.cfg.Host, p.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send smtp message: %w", err)
	}
	return nil
}

func (p *SMTPProvider) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithTLSPolicy(tlsPolicy(p.cfg.TLSPolicy))}
	if p.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(p.cfg.Port))
	}
	if p.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.cfg.Username),
			mail.WithPassword(p.cfg.Password),
		)
	}
	return opts
}

// sender picks the message from address, then the configured default, then the login
func (p *SMTPProvider) sender(msg Message) string {
	switch {
	case msg.From != "":
		return msg.From
	case p.cfg.DefaultFrom != "":
		return p.cfg.DefaultFrom
	default:
		return p.cfg.Username
	}
}

func (p *SMTPProvider) buildMsg(msg Message) (*mail.Msg, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(p.sender(msg)); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return nil, fmt.Errorf("invalid cc address: %w", err)
		}
	}
	if len(msg.Bcc) > 0 {
		if err := m.Bcc(msg.Bcc...); err != nil {
			return nil, fmt.Errorf("invalid bcc address: %w", err)
		}
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}

	m.Subject(msg.Subject)
	if msg.IsHTML {
		m.SetBodyString(mail.TypeTextHTML, msg.Body)
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}

	if msg.MessageID != "" {
		m.SetMessageIDWithValue(msg.MessageID)
	}
	for k, v := range msg.Headers {
		m.SetGenHeader(mail.Header(k), v)
	}
	if msg.CorrelationID != "" {
		m.SetGenHeader(mail.Header("X-Correlation-ID"), msg.CorrelationID)
	}
	for name, content := range msg.Attachments {
		if err := m.AttachReader(name, bytes.NewReader(content)); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", name, err)
		}
	}
	return m, nil
}

func tlsPolicy(policy string) mail.TLSPolicy {
	switch strings.ToLower(policy) {
	case "none", "notls":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}
