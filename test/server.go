package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/valura/notification/internal/app"
	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/pkg/api/v1/client"
	"github.com/valura/notification/pkg/api/v1/handlers"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// SetupServer configures the test suite with a real API server
func SetupServer(suite *Suite) {
	api := handlers.NewAPIHandler(
		suite.Service,
		services.NewQueueService(suite.Broker, suite.Stores.Preferences),
		services.NewPreferenceService(suite.Stores.Preferences),
	)
	suite.App = app.NewFiberApp(api)

	// Create test server using adaptor to convert Fiber app to http.Handler
	suite.Server = httptest.NewServer(adaptor.FiberApp(suite.App))

	// Create API client with test configuration
	apiClient, err := client.NewClient(&client.Options{
		BaseURL: suite.Server.URL,
		Timeout: testClientTimeout,
	})
	suite.Require().NoError(err, "Failed to create API client")
	suite.APIClient = apiClient

	// Close the server before the database goes away
	originalCleanup := suite.cleanup
	suite.cleanup = func() {
		if suite.Server != nil {
			suite.Server.Close()
		}
		if originalCleanup != nil {
			originalCleanup()
		}
	}
}
