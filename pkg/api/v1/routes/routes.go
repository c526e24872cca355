// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/valura/notification/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Smallest scope first (i.e. notification routes before preference routes)
2. For similar scopes, put the endpoints in alphabetical order
3. Order routes in GET, POST, PUT, DELETE order.
	a. Within this ordering, param urls (ie /:id) should go last, otherwise fiber will interpret the route slug as that param.
	b. After param considerations, order alphabetically.
4. For clarity, naming should match the action (i.e. GetNotification, DeletePreference)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Notification routes
	GetNotifications              = "GetNotifications"
	GetRecipientNotifications     = "GetRecipientNotifications"
	GetLatestNotification         = "GetLatestNotification"
	GetNotification               = "GetNotification"
	CreateNotification            = "CreateNotification"
	CreateEmailNotification       = "CreateEmailNotification"
	CreatePushNotification        = "CreatePushNotification"
	CreateSMSNotification         = "CreateSMSNotification"
	GetRecipientNotificationStats = "GetRecipientNotificationStats"

	// Preference routes
	GetPreference    = "GetPreference"
	InitPreference   = "InitPreference"
	UpdatePreference = "UpdatePreference"
	DeletePreference = "DeletePreference"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering is important because routes will try and match in the order they are registered.
// For example, if we register GetNotification before GetRecipientNotifications, "recipient" will get interpreted as a notification ID.
func RegisterRoutes(
	app *fiber.App,
	notificationHandler *handlers.NotificationHandler,
	preferenceHandler *handlers.PreferenceHandler,
) {
	// API v1 routes
	v1 := app.Group(APIv1Prefix)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	// Notification endpoints
	notifications := v1.Group("/notifications")
	notifications.Get("/", notificationHandler.ListNotifications).Name(GetNotifications)
	notifications.Get("/recipient/:recipient", notificationHandler.ListRecipientNotifications).Name(GetRecipientNotifications)
	notifications.Get("/recipient/:recipient/latest", notificationHandler.GetLatestNotification).Name(GetLatestNotification)
	notifications.Get("/:id", notificationHandler.GetNotification).Name(GetNotification)
	notifications.Post("/", notificationHandler.Enqueue).Name(CreateNotification)
	notifications.Post("/email", notificationHandler.EnqueueEmail).Name(CreateEmailNotification)
	notifications.Post("/push", notificationHandler.EnqueuePush).Name(CreatePushNotification)
	notifications.Post("/sms", notificationHandler.EnqueueSMS).Name(CreateSMSNotification)

	// Stats endpoints
	v1.Get("/stats/:recipient", notificationHandler.GetStats).Name(GetRecipientNotificationStats)

	// ---------------------------
	// Preference endpoints
	preferences := v1.Group("/preferences")
	preferences.Get("/:recipient", preferenceHandler.GetPreference).Name(GetPreference)
	preferences.Post("/init", preferenceHandler.InitPreference).Name(InitPreference)
	preferences.Put("/:recipient", preferenceHandler.PutPreference).Name(UpdatePreference)
	preferences.Delete("/:recipient", preferenceHandler.DeletePreference).Name(DeletePreference)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Create empty handlers for route registration
		mockNotificationHandler := &handlers.NotificationHandler{}
		mockPreferenceHandler := &handlers.PreferenceHandler{}

		RegisterRoutes(app, mockNotificationHandler, mockPreferenceHandler)

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()
	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, url.PathEscape(value))
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// Health check route helper

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Notification route helpers

// GetNotificationsURL returns the URL for listing notifications
func GetNotificationsURL(queryParams url.Values) string {
	return BuildURL(GetNotifications, nil, queryParams)
}

// GetRecipientNotificationsURL returns the URL for listing the notifications of a recipient
func GetRecipientNotificationsURL(recipientID string, queryParams url.Values) string {
	return BuildURL(GetRecipientNotifications, map[string]string{"recipient": recipientID}, queryParams)
}

// GetLatestNotificationURL returns the URL for the latest notification of a recipient
func GetLatestNotificationURL(recipientID string) string {
	return BuildURL(GetLatestNotification, map[string]string{"recipient": recipientID}, nil)
}

// GetNotificationURL returns the URL for getting a notification by ID
func GetNotificationURL(id string) string {
	return BuildURL(GetNotification, map[string]string{"id": id}, nil)
}

// CreateNotificationURL returns the URL for queueing a notification
func CreateNotificationURL() string {
	return BuildURL(CreateNotification, nil, nil)
}

// CreateEmailNotificationURL returns the URL for queueing a raw email
func CreateEmailNotificationURL() string {
	return BuildURL(CreateEmailNotification, nil, nil)
}

// CreatePushNotificationURL returns the URL for queueing a raw push payload
func CreatePushNotificationURL() string {
	return BuildURL(CreatePushNotification, nil, nil)
}

// CreateSMSNotificationURL returns the URL for queueing a raw SMS
func CreateSMSNotificationURL() string {
	return BuildURL(CreateSMSNotification, nil, nil)
}

// GetRecipientNotificationStatsURL returns the URL for today's counters of a recipient
func GetRecipientNotificationStatsURL(recipientID string, queryParams url.Values) string {
	return BuildURL(GetRecipientNotificationStats, map[string]string{"recipient": recipientID}, queryParams)
}

// Preference route helpers

// GetPreferenceURL returns the URL for getting the preference of a recipient
func GetPreferenceURL(recipientID string) string {
	return BuildURL(GetPreference, map[string]string{"recipient": recipientID}, nil)
}

// InitPreferenceURL returns the URL for initializing a preference
func InitPreferenceURL() string {
	return BuildURL(InitPreference, nil, nil)
}

// UpdatePreferenceURL returns the URL for replacing the channels of a recipient
func UpdatePreferenceURL(recipientID string) string {
	return BuildURL(UpdatePreference, map[string]string{"recipient": recipientID}, nil)
}

// DeletePreferenceURL returns the URL for deleting the preference of a recipient
func DeletePreferenceURL(recipientID string) string {
	return BuildURL(DeletePreference, map[string]string{"recipient": recipientID}, nil)
}
