package types

import (
	"time"

	"github.com/valura/notification/internal/db/models"
)

// PaginationResponse represents pagination information for list endpoints
// swagger:model
// Example: {"total":42,"page":1,"limit":50,"offset":0}
type PaginationResponse struct {
	// Number of items in this page
	Total int `json:"total"`

	// Current page number (1-based)
	Page int `json:"page"`

	// Maximum number of items per page
	Limit int `json:"limit"`

	// Number of items skipped from the beginning of the result set
	Offset int `json:"offset"`
}

// ListResponse defines a generic response structure for listing resources
// swagger:model
// Example: {"rows":[{"id":"6f1c...","status":"delivered"}],"pagination":{"total":1,"page":1,"limit":50,"offset":0}}
type ListResponse[T any] struct {
	// Array of resource items
	Rows []T `json:"rows"`

	// Pagination information for the result set
	Pagination PaginationResponse `json:"pagination"`
}

// NotificationListResponse is a page of notifications
type NotificationListResponse = ListResponse[models.Notification]

// EnqueueResponse is returned once a message has been handed to its queue
// swagger:model
// Example: {"message_id":"0b6c...","channel":"email","status":"queued"}
type EnqueueResponse struct {
	// Broker message id of the published payload
	MessageID string `json:"message_id"`

	// Queue the payload was routed to
	Channel models.Channel `json:"channel"`

	// Always "queued"
	Status string `json:"status"`
}

// EnqueueStatusQueued is the status of every accepted enqueue request
const EnqueueStatusQueued = "queued"

// StatsResponse is today's counter of a recipient on one channel
// swagger:model
// Example: {"channel_type":"email","daily_count":3,"last_sent_at":"2025-06-01T12:00:00Z"}
type StatsResponse struct {
	ChannelType models.Channel `json:"channel_type"`
	DailyCount  int            `json:"daily_count"`
	LastSentAt  time.Time      `json:"last_sent_at"`
}

// NewStatsResponse converts frequency rows into stats entries
func NewStatsResponse(rows []models.NotificationFrequency) []StatsResponse {
	out := make([]StatsResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, StatsResponse{
			ChannelType: r.ChannelType,
			DailyCount:  r.DailyCount,
			LastSentAt:  r.LastSentAt,
		})
	}
	return out
}

// DeleteResponse reports whether a delete removed anything
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
