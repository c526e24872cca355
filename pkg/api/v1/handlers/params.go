package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one failed validation rule
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindBody decodes the JSON body into out and validates it. On failure it has
// already written the 400 response and returns false.
func bindBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgInvalidReqBody, err.Error()))
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgValidationFailed, fieldErrors(err)))
	}
	return true, nil
}

func fieldErrors(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Namespace(), Rule: fe.Tag()})
	}
	return out
}

// NotificationListParams are the query parameters of the list endpoints
type NotificationListParams struct {
	Page    int
	Status  string
	Channel string
}

// parseListParams reads the list query parameters
func parseListParams(c *fiber.Ctx) NotificationListParams {
	return NotificationListParams{
		Page:    c.QueryInt("page", 1),
		Status:  c.Query("status"),
		Channel: c.Query("channel"),
	}
}

// ListOptions validates the parameters and converts them to store options
func (p NotificationListParams) ListOptions() (*models.ListOptions, error) {
	if p.Page < 0 {
		return nil, errors.New(strings.ToLower(ErrMsgNegativePagination))
	}
	opts := getPaginationOptions(p.Page)
	if p.Status != "" {
		status, err := models.ParseNotificationStatus(p.Status)
		if err != nil {
			return nil, err
		}
		opts.Status = &status
	}
	if p.Channel != "" {
		ch, err := models.ParseChannel(p.Channel)
		if err != nil {
			return nil, err
		}
		opts.Channel = ch
	}
	return opts, nil
}
