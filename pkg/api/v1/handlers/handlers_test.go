package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/valura/notification/internal/db"
	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/db/repos"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/internal/types"
)

type recordedPublish struct {
	channel models.Channel
	body    []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []recordedPublish
}

func (p *recordingPublisher) Publish(_ context.Context, channel models.Channel, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, recordedPublish{channel: channel, body: body})
	return fmt.Sprintf("msg-%d", len(p.msgs)), nil
}

type nopEmail struct{}

func (nopEmail) Send(context.Context, email.Message) error { return nil }
func (nopEmail) ProviderName() string                      { return "Nop" }

// HandlerTestSuite serves the handlers from a fiber app backed by an in-memory database
type HandlerTestSuite struct {
	suite.Suite
	app           *fiber.App
	publisher     *recordingPublisher
	notifications *services.Notification
	preferences   *services.Preference
	ctx           context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(conn))
	s.T().Cleanup(func() { _ = db.Close(conn) })

	stores := services.Stores{
		Notifications: repos.NewNotificationRepository(conn),
		Frequencies:   repos.NewFrequencyRepository(conn),
		Preferences:   repos.NewPreferenceRepository(conn),
	}
	s.ctx = context.Background()
	s.publisher = &recordingPublisher{}
	s.notifications = services.NewNotificationService(stores, nopEmail{}, services.DefaultNotificationOptions())
	s.preferences = services.NewPreferenceService(stores.Preferences)
	queue := services.NewQueueService(s.publisher, stores.Preferences)

	api := NewAPIHandler(s.notifications, queue, s.preferences)
	s.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	n, p := api.Notifications, api.Preferences
	v1 := s.app.Group("/api/v1")
	v1.Get("/notifications", n.ListNotifications)
	v1.Get("/notifications/recipient/:recipient", n.ListRecipientNotifications)
	v1.Get("/notifications/recipient/:recipient/latest", n.GetLatestNotification)
	v1.Get("/notifications/:id", n.GetNotification)
	v1.Post("/notifications", n.Enqueue)
	v1.Post("/notifications/email", n.EnqueueEmail)
	v1.Post("/notifications/sms", n.EnqueueSMS)
	v1.Post("/notifications/push", n.EnqueuePush)
	v1.Get("/stats/:recipient", n.GetStats)
	v1.Get("/preferences/:recipient", p.GetPreference)
	v1.Post("/preferences/init", p.InitPreference)
	v1.Put("/preferences/:recipient", p.PutPreference)
	v1.Delete("/preferences/:recipient", p.DeletePreference)
}

func (s *HandlerTestSuite) do(method, path string, body interface{}) (int, types.SlugResponse) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out types.SlugResponse
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *HandlerTestSuite) TestEnqueueWithoutPreference() {
	code, resp := s.do(http.MethodPost, "/api/v1/notifications", types.NotificationRequest{
		RecipientID: "user-1", Channel: "email", Title: "Hi", Body: "Body",
	})
	s.Equal(fiber.StatusBadRequest, code)
	s.Equal("User preferences not found for recipient: user-1", resp.Error)
	s.Empty(s.publisher.msgs)
}

func (s *HandlerTestSuite) TestEnqueueWithPreference() {
	_, err := s.preferences.Init(s.ctx, "user-1", "u1@example.com", "", "")
	s.Require().NoError(err)

	code, resp := s.do(http.MethodPost, "/api/v1/notifications", types.NotificationRequest{
		RecipientID: "user-1", Channel: "EMAIL", Title: "Hi", Body: "Body",
	})
	s.Equal(fiber.StatusAccepted, code)
	s.Equal(types.AcceptedSlug, resp.Slug)
	s.Require().Len(s.publisher.msgs, 1)
	s.Equal(models.ChannelEmail, s.publisher.msgs[0].channel)
}

func (s *HandlerTestSuite) TestEnqueueValidation() {
	code, resp := s.do(http.MethodPost, "/api/v1/notifications", types.NotificationRequest{Channel: "fax", Body: "x"})
	s.Equal(fiber.StatusBadRequest, code)
	s.Equal(ErrMsgValidationFailed, resp.Error)
	s.NotNil(resp.Details)

	code, resp = s.do(http.MethodPost, "/api/v1/notifications", "{not json")
	s.Equal(fiber.StatusBadRequest, code)
	s.Equal(ErrMsgInvalidReqBody, resp.Error)
}

func (s *HandlerTestSuite) TestEnqueueRawChannels() {
	code, _ := s.do(http.MethodPost, "/api/v1/notifications/email", email.Message{To: "a@example.com", Subject: "S", Body: "B"})
	s.Equal(fiber.StatusAccepted, code)

	code, _ = s.do(http.MethodPost, "/api/v1/notifications/email", email.Message{To: "not-an-address"})
	s.Equal(fiber.StatusBadRequest, code)

	code, _ = s.do(http.MethodPost, "/api/v1/notifications/sms", services.SMSMessage{Phone: "+15550100", Message: "code"})
	s.Equal(fiber.StatusAccepted, code)

	code, _ = s.do(http.MethodPost, "/api/v1/notifications/push", `{"recipientId":"user-2","title":"T"}`)
	s.Equal(fiber.StatusAccepted, code)

	code, resp := s.do(http.MethodPost, "/api/v1/notifications/push", `{"title":"T"}`)
	s.Equal(fiber.StatusBadRequest, code)
	s.Contains(resp.Error, "recipientId")

	code, _ = s.do(http.MethodPost, "/api/v1/notifications/push", `nope`)
	s.Equal(fiber.StatusBadRequest, code)

	s.Require().Len(s.publisher.msgs, 3)
	s.JSONEq(`{"recipientId":"user-2","title":"T"}`, string(s.publisher.msgs[2].body))
}

func (s *HandlerTestSuite) TestNotificationQueries() {
	n, err := s.notifications.SendEmail(s.ctx, email.Message{To: "a@example.com", Subject: "S", Body: "B"})
	s.Require().NoError(err)

	code, resp := s.do(http.MethodGet, "/api/v1/notifications/"+n.ID, nil)
	s.Equal(fiber.StatusOK, code)
	s.Equal(types.SuccessSlug, resp.Slug)

	code, resp = s.do(http.MethodGet, "/api/v1/notifications/missing", nil)
	s.Equal(fiber.StatusNotFound, code)
	s.Equal(ErrMsgNotificationNotFound, resp.Error)

	code, resp = s.do(http.MethodGet, "/api/v1/notifications/recipient/a@example.com/latest", nil)
	s.Equal(fiber.StatusOK, code)
	data, ok := resp.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Equal(n.ID, data["id"])
	s.Equal(string(models.NotificationStatusDelivered), data["status"])

	code, _ = s.do(http.MethodGet, "/api/v1/notifications/recipient/nobody/latest", nil)
	s.Equal(fiber.StatusNotFound, code)

	code, resp = s.do(http.MethodGet, "/api/v1/notifications?status=delivered&channel=email", nil)
	s.Equal(fiber.StatusOK, code)
	list, ok := resp.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Len(list["rows"], 1)

	code, _ = s.do(http.MethodGet, "/api/v1/notifications?status=bogus", nil)
	s.Equal(fiber.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/v1/notifications?status=unknown", nil)
	s.Equal(fiber.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, "/api/v1/notifications/recipient/a@example.com", nil)
	s.Equal(fiber.StatusOK, code)
	list, ok = resp.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Len(list["rows"], 1)
}

func (s *HandlerTestSuite) TestStats() {
	_, err := s.notifications.SendEmail(s.ctx, email.Message{To: "a@example.com", Subject: "S", Body: "B"})
	s.Require().NoError(err)

	code, resp := s.do(http.MethodGet, "/api/v1/stats/a@example.com?channel=email", nil)
	s.Equal(fiber.StatusOK, code)
	rows, ok := resp.Data.([]interface{})
	s.Require().True(ok)
	s.Require().Len(rows, 1)
	row := rows[0].(map[string]interface{})
	s.Equal("email", row["channel_type"])
	s.EqualValues(1, row["daily_count"])

	code, _ = s.do(http.MethodGet, "/api/v1/stats/a@example.com?channel=fax", nil)
	s.Equal(fiber.StatusBadRequest, code)

	code, resp = s.do(http.MethodGet, "/api/v1/stats/nobody", nil)
	s.Equal(fiber.StatusOK, code)
	s.Empty(resp.Data)
}

func (s *HandlerTestSuite) TestPreferenceLifecycle() {
	code, _ := s.do(http.MethodGet, "/api/v1/preferences/user-1", nil)
	s.Equal(fiber.StatusNotFound, code)

	code, resp := s.do(http.MethodPost, "/api/v1/preferences/init", types.InitPreferenceRequest{
		RecipientID: "user-1", Email: "u1@example.com", Phone: "+15550100",
	})
	s.Equal(fiber.StatusOK, code, resp.Error)

	code, _ = s.do(http.MethodPut, "/api/v1/preferences/user-1", types.PutPreferenceRequest{
		Channels: []types.PreferenceChannel{{Type: "PUSH", Token: "device", Enabled: true}},
	})
	s.Equal(fiber.StatusOK, code)

	p, err := s.preferences.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(p.Channels, 1)
	s.Equal(models.ChannelPush, p.Channels[0].Type)

	code, _ = s.do(http.MethodPut, "/api/v1/preferences/user-1", types.PutPreferenceRequest{
		Channels: []types.PreferenceChannel{{Type: "fax"}},
	})
	s.Equal(fiber.StatusBadRequest, code)

	code, resp = s.do(http.MethodDelete, "/api/v1/preferences/user-1", nil)
	s.Equal(fiber.StatusOK, code)
	s.Equal(map[string]interface{}{"deleted": true}, resp.Data)

	code, resp = s.do(http.MethodDelete, "/api/v1/preferences/user-1", nil)
	s.Equal(fiber.StatusOK, code)
	s.Equal(map[string]interface{}{"deleted": false}, resp.Data)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusFor(fmt.Errorf("x: %w", services.ErrNotFound)))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(services.ErrInvalidMessage))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(services.ErrNoPreference))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(assert.AnError))
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var out types.SlugResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, types.ErrorSlug, out.Slug)
}
