package handlers

import (
	"errors"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/internal/types"
)

// PreferenceHandler handles HTTP requests for user preferences
type PreferenceHandler struct {
	preferences *services.Preference
}

// NewPreferenceHandler creates a new instance of PreferenceHandler
func NewPreferenceHandler(preferences *services.Preference) *PreferenceHandler {
	return &PreferenceHandler{
		preferences: preferences,
	}
}

// InitPreference handles replacing a preference with one channel per supplied address
func (h *PreferenceHandler) InitPreference(c *fiber.Ctx) error {
	var req types.InitPreferenceRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	p, err := h.preferences.Init(c.UserContext(), req.RecipientID, req.Email, req.PushToken, req.Phone)
	if err != nil {
		return respondError(c, err, ErrMsgPreferenceSaveFailed)
	}
	return c.JSON(types.Success(p))
}

// PutPreference handles replacing the channels of a recipient
func (h *PreferenceHandler) PutPreference(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	var req types.PutPreferenceRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	p, err := h.preferences.Upsert(c.UserContext(), recipientID, req.ToModel())
	if err != nil {
		return respondError(c, err, ErrMsgPreferenceSaveFailed)
	}
	return c.JSON(types.Success(p))
}

// GetPreference handles retrieving the preference of a recipient
func (h *PreferenceHandler) GetPreference(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	p, err := h.preferences.Get(c.UserContext(), recipientID)
	if errors.Is(err, services.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrNotFound(ErrMsgPreferenceNotFound))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgPreferenceGetFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(p))
}

// DeletePreference handles removing the preference of a recipient. Deleting a
// missing preference is not an error.
func (h *PreferenceHandler) DeletePreference(c *fiber.Ctx) error {
	recipientID := c.Params("recipient")
	if strings.TrimSpace(recipientID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgRecipientRequired))
	}

	deleted, err := h.preferences.Delete(c.UserContext(), recipientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrServer(ErrMsgPreferenceDeleteFailed + ": " + err.Error()))
	}
	return c.JSON(types.Success(types.DeleteResponse{Deleted: deleted}))
}
