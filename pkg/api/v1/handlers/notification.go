package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/email"
	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/internal/types"
)

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	notifications *services.Notification
	queue         *services.Queue
}

// NewNotificationHandler creates a new instance of NotificationHandler
func NewNotificationHandler(notifications *services.Notification, queue *services.Queue) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		queue:         queue,
	}
}

// Enqueue handles queueing a notification for a recipient with a stored preference
func (h *NotificationHandler) Enqueue(c *fiber.Ctx) error {
	var req types.NotificationRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidChannel, err.Error()))
	}

	id, err := h.queue.Enqueue(c.UserContext(), req.RecipientID, channel, req.Title, req.Body)
	if errors.Is(err, services.ErrNoPreference) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgPreferenceMissing + req.RecipientID))
	}
	return h.accepted(c, channel, id, err)
}

// EnqueueEmail handles queueing a raw email message
func (h *NotificationHandler) EnqueueEmail(c *fiber.Ctx) error {
	var msg email.Message
	if ok, err := bindBody(c, &msg); !ok {
		return err
	}
	id, err := h.queue.EnqueueEmail(c.UserContext(), msg)
	return h.accepted(c, models.ChannelEmail, id, err)
}

// EnqueueSMS handles queueing a raw SMS message
func (h *NotificationHandler) EnqueueSMS(c *fiber.Ctx) error {
	var msg services.SMSMessage
	if ok, err := bindBody(c, &msg); !ok {
		return err
	}
	id, err := h.queue.EnqueueSMS(c.UserContext(), msg)
	return h.accepted(c, models.ChannelSMS, id, err)
}

// EnqueuePush handles queueing a raw push payload. The body is forwarded untouched.
func (h *NotificationHandler) EnqueuePush(c *fiber.Ctx) error {
	body := c.Body()
	if !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidReqFormat))
	}
	// fiber reuses the request buffer once the handler returns
	raw := append([]byte(nil), body...)
	id, err := h.queue.EnqueuePush(c.UserContext(), raw)
	return h.accepted(c, models.ChannelPush, id, err)
}

func (h *NotificationHandler) accepted(c *fiber.Ctx, channel models.Channel, id string, err error) error {
	if err != nil {
		return respondError(c, err, ErrMsgEnqueueFailed)
	}
	return c.Status(fiber.StatusAccepted).JSON(types.Accepted(types.EnqueueResponse{
		MessageID: id,
		Channel:   channel,
		Status:    types.EnqueueStatusQueued,
	}))
}

// ListNotifications handles retrieving notifications with pagination and filters
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params := parseListParams(c)
	opts, err := params.ListOptions()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidParams, err.Error()))
	}

	rows, err := h.notifications.List(c.UserContext(), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgNotificationListFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(paginate(rows, params.Page, opts)))
}

// ListRecipientNotifications handles retrieving the notifications of one recipient
func (h *NotificationHandler) ListRecipientNotifications(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	params := parseListParams(c)
	opts, err := params.ListOptions()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidParams, err.Error()))
	}

	rows, err := h.notifications.ListByRecipient(c.UserContext(), recipientID, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgNotificationListFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(paginate(rows, params.Page, opts)))
}

// GetLatestNotification handles retrieving the most recent notification of a recipient
func (h *NotificationHandler) GetLatestNotification(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	n, err := h.notifications.Latest(c.UserContext(), recipientID)
	if errors.Is(err, services.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrNotFound(ErrMsgNoNotifications))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgNotificationGetFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(n))
}

// GetNotification handles retrieving a notification by id
func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := c.Params("id")
	if strings.TrimSpace(id) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgNotificationIDRequired))
	}

	n, err := h.notifications.Get(c.UserContext(), id)
	if errors.Is(err, services.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrNotFound(ErrMsgNotificationNotFound))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgNotificationGetFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(n))
}

// GetStats handles retrieving today's counters of a recipient, optionally for one channel
func (h *NotificationHandler) GetStats(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	var channel models.Channel
	if raw := c.Query("channel"); raw != "" {
		ch, err := models.ParseChannel(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidChannel, err.Error()))
		}
		channel = ch
	}

	rows, err := h.notifications.Stats(c.UserContext(), recipientID, channel)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgStatsFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(types.NewStatsResponse(rows)))
}
