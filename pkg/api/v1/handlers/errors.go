// Package handlers provides HTTP request handling
package handlers

// Common error messages
const (
	ErrMsgInvalidParams    = "Invalid parameters"
	ErrMsgInvalidReqFormat = "Invalid request format"
	ErrMsgInvalidReqBody   = "Invalid request body"
	ErrMsgValidationFailed = "Validation failed"
	ErrMsgInvalidChannel   = "Invalid channel"
	ErrMsgInvalidStatus    = "Invalid notification status"
)

// Notification error messages
const (
	ErrMsgNotificationIDRequired = "Notification id is required"
	ErrMsgNotificationNotFound   = "Notification not found"
	ErrMsgNoNotifications        = "No notifications found for recipient"
	ErrMsgNotificationListFailed = "Failed to list notifications"
	ErrMsgNotificationGetFailed  = "Failed to get notification"
	ErrMsgEnqueueFailed          = "Failed to queue notification"
	ErrMsgStatsFailed            = "Failed to get notification stats"
)

// Preference error messages
const (
	ErrMsgRecipientRequired      = "Recipient id is required"
	ErrMsgPreferenceMissing      = "User preferences not found for recipient: "
	ErrMsgPreferenceNotFound     = "Preference not found"
	ErrMsgPreferenceSaveFailed   = "Failed to save preference"
	ErrMsgPreferenceGetFailed    = "Failed to get preference"
	ErrMsgPreferenceDeleteFailed = "Failed to delete preference"
)

// Pagination error messages
const (
	ErrMsgNegativePagination = "Page must be a positive number from 1"
)
