// Package types holds the request and response shapes of the HTTP API
package types

// Slug is a type for the slug field in the response
// It is mainly used for the client to understand the type of the response
type Slug string

// nolint:gochecknoglobals
const (
	SuccessSlug      Slug = "success"
	AcceptedSlug     Slug = "accepted"
	ErrorSlug        Slug = "error"
	InvalidInputSlug Slug = "invalid-input"
	NotFoundSlug     Slug = "not-found"
	ServerErrorSlug  Slug = "server-error"
)

// SlugResponse is the response type for the API
type SlugResponse struct {
	Slug    Slug        `json:"slug"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrInvalidInput returns a SlugResponse with the InvalidInputSlug and the error message
func ErrInvalidInput(msg string, details ...interface{}) SlugResponse {
	resp := SlugResponse{
		Slug:  InvalidInputSlug,
		Error: msg,
	}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	return resp
}

// ErrNotFound returns a SlugResponse with the NotFoundSlug and the error message
func ErrNotFound(msg string) SlugResponse {
	return SlugResponse{
		Slug:  NotFoundSlug,
		Error: msg,
	}
}

// ErrServer returns a SlugResponse with the ServerErrorSlug and the error message
func ErrServer(msg string) SlugResponse {
	return SlugResponse{
		Slug:  ServerErrorSlug,
		Error: msg,
	}
}

// Success returns a SlugResponse with the SuccessSlug and the data
func Success(data interface{}) SlugResponse {
	return SlugResponse{
		Slug: SuccessSlug,
		Data: data,
	}
}

// Accepted returns a SlugResponse for work handed to the queues
func Accepted(data interface{}) SlugResponse {
	return SlugResponse{
		Slug: AcceptedSlug,
		Data: data,
	}
}
