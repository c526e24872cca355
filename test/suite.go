package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/valura/notification/internal/services"
	"github.com/valura/notification/pkg/api/v1/client"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// Suite encapsulates all components needed for end to end testing.
// It provides a complete test setup with:
//   - File based SQLite store
//   - Real notification service and API server
//   - Real API client
//   - Inline broker and recording email sender
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App    *fiber.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Database components
	DB     *gorm.DB
	Stores services.Stores

	// Service components
	Service *services.Notification
	Broker  *InlineBroker
	Email   *RecordingEmailSender

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup func()
}

// SetS sets the suite instance for this suite
func (s *Suite) SetS(_ suite.TestingSuite) {
	// This method is required by suite.TestingSuite but we don't need to do anything here
}

// SetT sets the testing.T instance for this suite
func (s *Suite) SetT(t *testing.T) {
	s.t = t
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// NewSuite creates a new test suite with the given service options.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T, opts ...func(*services.NotificationOptions)) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	suite := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	suite.cleanup = func() {
		if suite.cancelFunc != nil {
			suite.cancelFunc()
		}
	}

	// Setup database by default
	SetupTestDB(suite, nil)

	notificationOpts := services.DefaultNotificationOptions()
	notificationOpts.RetryDelay = time.Millisecond
	for _, opt := range opts {
		opt(&notificationOpts)
	}
	suite.Email = &RecordingEmailSender{}
	suite.Service = services.NewNotificationService(suite.Stores, suite.Email, notificationOpts)
	suite.Broker = NewInlineBroker(suite.Service.QueueHandlers())

	// Setup server by default
	SetupServer(suite)

	return suite
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}
