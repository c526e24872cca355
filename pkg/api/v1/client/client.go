// Package client provides the API client for interacting with the notification API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/internal/types"
	"github.com/valura/notification/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Notification Endpoints
	ListNotifications(ctx context.Context, params ListParams) ([]models.Notification, error)
	ListRecipientNotifications(ctx context.Context, recipientID string, params ListParams) ([]models.Notification, error)
	GetLatestNotification(ctx context.Context, recipientID string) (models.Notification, error)
	GetNotification(ctx context.Context, id string) (models.Notification, error)
	Enqueue(ctx context.Context, req types.NotificationRequest) (types.EnqueueResponse, error)
	EnqueueEmail(ctx context.Context, msg email.Message) (types.EnqueueResponse, error)
	EnqueueSMS(ctx context.Context, msg services.SMSMessage) (types.EnqueueResponse, error)
	EnqueuePush(ctx context.Context, payload interface{}) (types.EnqueueResponse, error)
	GetStats(ctx context.Context, recipientID string, channel models.Channel) ([]types.StatsResponse, error)

	// Preference Endpoints
	GetPreference(ctx context.Context, recipientID string) (models.UserPreference, error)
	InitPreference(ctx context.Context, req types.InitPreferenceRequest) (models.UserPreference, error)
	UpdatePreference(ctx context.Context, recipientID string, req types.PutPreferenceRequest) (models.UserPreference, error)
	DeletePreference(ctx context.Context, recipientID string) (bool, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// ListParams are the filters of the notification list endpoints
type ListParams struct {
	Page    int
	Status  string
	Channel string
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	_, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	// Create a new agent based on the HTTP method
	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	// Set common headers
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// envelope is the wire form of types.SlugResponse with the data left undecoded
type envelope struct {
	Slug  types.Slug      `json:"slug"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// doRequest sends the HTTP request and decodes the data of the response envelope into v
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		msg := string(body)
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			msg = env.Error
		}
		return &fiber.Error{
			Code:    statusCode,
			Message: msg,
		}
	}

	if v == nil || len(body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	// Endpoints outside the envelope, such as health, carry their payload at the top level
	if env.Slug == "" {
		env.Data = body
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("error decoding response data: %w", err)
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

// getQueryParams converts list parameters to query values
func getQueryParams(p ListParams) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Channel != "" {
		q.Set("channel", p.Channel)
	}
	return q
}

// Health check implementation

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	endpoint := routes.HealthCheckURL()
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Notification methods implementation

// ListNotifications retrieves one page of notifications
func (c *APIClient) ListNotifications(ctx context.Context, params ListParams) ([]models.Notification, error) {
	endpoint := routes.GetNotificationsURL(getQueryParams(params))
	var response types.ListResponse[models.Notification]
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return []models.Notification{}, err
	}
	return response.Rows, nil
}

// ListRecipientNotifications retrieves one page of the notifications of a recipient
func (c *APIClient) ListRecipientNotifications(ctx context.Context, recipientID string, params ListParams) ([]models.Notification, error) {
	endpoint := routes.GetRecipientNotificationsURL(recipientID, getQueryParams(params))
	var response types.ListResponse[models.Notification]
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return []models.Notification{}, err
	}
	return response.Rows, nil
}

// GetLatestNotification retrieves the most recent notification of a recipient
func (c *APIClient) GetLatestNotification(ctx context.Context, recipientID string) (models.Notification, error) {
	endpoint := routes.GetLatestNotificationURL(recipientID)
	var response models.Notification
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Notification{}, err
	}
	return response, nil
}

// GetNotification retrieves a notification by ID
func (c *APIClient) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	endpoint := routes.GetNotificationURL(id)
	var response models.Notification
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Notification{}, err
	}
	return response, nil
}

// Enqueue queues a notification for a recipient with a stored preference
func (c *APIClient) Enqueue(ctx context.Context, req types.NotificationRequest) (types.EnqueueResponse, error) {
	return c.enqueue(ctx, routes.CreateNotificationURL(), req)
}

// EnqueueEmail queues a raw email message
func (c *APIClient) EnqueueEmail(ctx context.Context, msg email.Message) (types.EnqueueResponse, error) {
	return c.enqueue(ctx, routes.CreateEmailNotificationURL(), msg)
}

// EnqueueSMS queues a raw SMS message
func (c *APIClient) EnqueueSMS(ctx context.Context, msg services.SMSMessage) (types.EnqueueResponse, error) {
	return c.enqueue(ctx, routes.CreateSMSNotificationURL(), msg)
}

// EnqueuePush queues a raw push payload. It must carry a recipientId field.
func (c *APIClient) EnqueuePush(ctx context.Context, payload interface{}) (types.EnqueueResponse, error) {
	return c.enqueue(ctx, routes.CreatePushNotificationURL(), payload)
}

func (c *APIClient) enqueue(ctx context.Context, endpoint string, body interface{}) (types.EnqueueResponse, error) {
	var response types.EnqueueResponse
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return types.EnqueueResponse{}, err
	}
	return response, nil
}

// GetStats retrieves today's counters of a recipient. An empty channel returns every channel.
func (c *APIClient) GetStats(ctx context.Context, recipientID string, channel models.Channel) ([]types.StatsResponse, error) {
	q := url.Values{}
	if channel != "" {
		q.Set("channel", channel.String())
	}
	endpoint := routes.GetRecipientNotificationStatsURL(recipientID, q)
	var response []types.StatsResponse
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return []types.StatsResponse{}, err
	}
	return response, nil
}

// Preference methods implementation

// GetPreference retrieves the preference of a recipient
func (c *APIClient) GetPreference(ctx context.Context, recipientID string) (models.UserPreference, error) {
	endpoint := routes.GetPreferenceURL(recipientID)
	var response models.UserPreference
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.UserPreference{}, err
	}
	return response, nil
}

// InitPreference replaces the preference of a recipient with one channel per supplied address
func (c *APIClient) InitPreference(ctx context.Context, req types.InitPreferenceRequest) (models.UserPreference, error) {
	endpoint := routes.InitPreferenceURL()
	var response models.UserPreference
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, req, &response); err != nil {
		return models.UserPreference{}, err
	}
	return response, nil
}

// UpdatePreference replaces the channels of a recipient
func (c *APIClient) UpdatePreference(ctx context.Context, recipientID string, req types.PutPreferenceRequest) (models.UserPreference, error) {
	endpoint := routes.UpdatePreferenceURL(recipientID)
	var response models.UserPreference
	if err := c.executeRequest(ctx, http.MethodPut, endpoint, req, &response); err != nil {
		return models.UserPreference{}, err
	}
	return response, nil
}

// DeletePreference removes the preference of a recipient and reports whether one existed
func (c *APIClient) DeletePreference(ctx context.Context, recipientID string) (bool, error) {
	endpoint := routes.DeletePreferenceURL(recipientID)
	var response types.DeleteResponse
	if err := c.executeRequest(ctx, http.MethodDelete, endpoint, nil, &response); err != nil {
		return false, err
	}
	return response.Deleted, nil
}
