package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/config"
)

const (
	// MandrillProviderName is the name reported by the Mailchimp Transactional provider
	MandrillProviderName = "Mailchimp Transactional (Mandrill)"
	// DefaultMandrillBaseURL is the public Mandrill API endpoint
	DefaultMandrillBaseURL = "https://mandrillapp.com/api/1.0"

	sendPath         = "/messages/send.json"
	sendTemplatePath = "/messages/send-template.json"
	defaultTimeout   = 15 * time.Second
)

// MandrillProvider sends messages through the Mailchimp Transactional HTTP API
type MandrillProvider struct {
	cfg config.MailchimpConfig
}

// NewMandrillProvider creates a new Mailchimp Transactional provider
func NewMandrillProvider(cfg config.MailchimpConfig) *MandrillProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMandrillBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &MandrillProvider{cfg: cfg}
}

// Name implements Provider
func (p *MandrillProvider) Name() string {
	return MandrillProviderName
}

// Configured implements Provider
func (p *MandrillProvider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != "" && strings.TrimSpace(p.cfg.FromEmail) != ""
}

type mandrillRecipient struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type mandrillAttachment struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type mandrillVar struct {
	Name    string      `json:"name"`
	Content interface{} `json:"content"`
}

type mandrillMessage struct {
	FromEmail      string               `json:"from_email"`
	FromName       string               `json:"from_name,omitempty"`
	To             []mandrillRecipient  `json:"to"`
	Subject        string               `json:"subject"`
	HTML           string               `json:"html,omitempty"`
	Text           string               `json:"text,omitempty"`
	Headers        map[string]string    `json:"headers,omitempty"`
	Attachments    []mandrillAttachment `json:"attachments,omitempty"`
	GlobalMergeVar []mandrillVar        `json:"global_merge_vars,omitempty"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
}

type mandrillRequest struct {
	Key             string          `json:"key"`
	TemplateName    string          `json:"template_name,omitempty"`
	TemplateContent []mandrillVar   `json:"template_content,omitempty"`
	Message         mandrillMessage `json:"message"`
}

type mandrillResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason"`
	ID           string `json:"_id"`
}

// Send implements Provider
func (p *MandrillProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return retry.Unrecoverable(err)
	}

	req := p.buildRequest(msg)
	path := sendPath
	if msg.TemplateID != "" {
		path = sendTemplatePath
	}

	agent := fiber.Post(p.cfg.BaseURL + path)
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(p.cfg.Timeout)
	}
	agent.Set("Accept", "application/json")
	agent.JSON(req)

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("mandrill returned %d: %s", statusCode, string(body))
	}

	var results []mandrillResult
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("error decoding mandrill response: %w", err)
	}
	for _, r := range results {
		if r.Status == "rejected" || r.Status == "invalid" {
			return retry.Unrecoverable(fmt.Errorf("mandrill %s %s: %s", r.Status, r.Email, r.RejectReason))
		}
	}
	return nil
}

func (p *MandrillProvider) buildRequest(msg Message) mandrillRequest {
	to := []mandrillRecipient{{Email: msg.To, Type: "to"}}
	for _, addr := range msg.Cc {
		to = append(to, mandrillRecipient{Email: addr, Type: "cc"})
	}
	for _, addr := range msg.Bcc {
		to = append(to, mandrillRecipient{Email: addr, Type: "bcc"})
	}

	from := p.cfg.FromEmail
	if msg.From != "" {
		from = msg.From
	}

	m := mandrillMessage{
		FromEmail: from,
		FromName:  p.cfg.FromName,
		To:        to,
		Subject:   msg.Subject,
		Headers:   make(map[string]string, len(msg.Headers)),
	}
	if msg.IsHTML {
		m.HTML = msg.Body
	} else {
		m.Text = msg.Body
	}
	for k, v := range msg.Headers {
		m.Headers[k] = v
	}
	if msg.ReplyTo != "" {
		m.Headers["Reply-To"] = msg.ReplyTo
	}
	if msg.MessageID != "" {
		m.Headers["Message-Id"] = msg.MessageID
	}
	if len(m.Headers) == 0 {
		m.Headers = nil
	}
	if msg.CorrelationID != "" {
		m.Metadata = map[string]string{"correlation_id": msg.CorrelationID}
	}

	names := make([]string, 0, len(msg.Attachments))
	for name := range msg.Attachments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		content := msg.Attachments[name]
		m.Attachments = append(m.Attachments, mandrillAttachment{
			Type:    http.DetectContentType(content),
			Name:    name,
			Content: base64.StdEncoding.EncodeToString(content),
		})
	}

	req := mandrillRequest{Key: p.cfg.APIKey, Message: m}
	if msg.TemplateID != "" {
		req.TemplateName = msg.TemplateID
		req.TemplateContent = []mandrillVar{}
		keys := make([]string, 0, len(msg.TemplateData))
		for k := range msg.TemplateData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			req.Message.GlobalMergeVar = append(req.Message.GlobalMergeVar, mandrillVar{Name: k, Content: msg.TemplateData[k]})
		}
	}
	return req
}
