package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/internal/types"
)

// APIHandler groups the handlers of every v1 resource
type APIHandler struct {
	Notifications *NotificationHandler
	Preferences   *PreferenceHandler
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(notifications *services.Notification, queue *services.Queue, preferences *services.Preference) *APIHandler {
	return &APIHandler{
		Notifications: NewNotificationHandler(notifications, queue),
		Preferences:   NewPreferenceHandler(preferences),
	}
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrNoPreference),
		errors.Is(err, services.ErrInvalidMessage),
		errors.Is(err, services.ErrInvalidPreference):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to. msg replaces the error
// text of server errors.
func respondError(c *fiber.Ctx, err error, msg string) error {
	status := statusFor(err)
	switch status {
	case fiber.StatusNotFound:
		return c.Status(status).JSON(types.ErrNotFound(err.Error()))
	case fiber.StatusBadRequest:
		return c.Status(status).JSON(types.ErrInvalidInput(err.Error()))
	default:
		return c.Status(status).JSON(types.ErrServer(msg + ": " + err.Error()))
	}
}

// ErrorHandler renders errors escaping the handlers, such as unmatched routes, as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(types.SlugResponse{
		Slug:  types.ErrorSlug,
		Error: err.Error(),
	})
}
