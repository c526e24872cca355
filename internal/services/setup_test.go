package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/valura/notification/internal/db"
	"github.com/valura/notification/internal/db/repos"
	"github.com/valura/notification/internal/email"
)

// fakeClock is a settable clock for the pre-dispatch checks
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeEmail records messages and fails the first failures calls. With
// rejectAll every call fails with an unrecoverable error. With interrupt set
// the call cancels the delivery context and fails with its error.
type fakeEmail struct {
	mu        sync.Mutex
	failures  int
	rejectAll bool
	interrupt context.CancelFunc
	calls     int
	sent      []email.Message
}

func (f *fakeEmail) Send(ctx context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.interrupt != nil {
		f.interrupt()
		return ctx.Err()
	}
	if f.rejectAll {
		return retry.Unrecoverable(errors.New("recipient rejected"))
	}
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeEmail) ProviderName() string { return "Fake" }

// TestSetup sets up an in-memory database and services for testing
type TestSetup struct {
	DB                  *gorm.DB
	Stores              Stores
	Email               *fakeEmail
	Clock               *fakeClock
	NotificationService *Notification
	PreferenceService   *Preference
	ctx                 context.Context
}

// NewTestSetup creates a new test setup with in-memory database
func NewTestSetup(t *testing.T, opts NotificationOptions) *TestSetup {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to create in-memory database")
	require.NoError(t, db.Migrate(conn), "Failed to run migrations")
	t.Cleanup(func() { _ = db.Close(conn) })

	stores := Stores{
		Notifications: repos.NewNotificationRepository(conn),
		Frequencies:   repos.NewFrequencyRepository(conn),
		Preferences:   repos.NewPreferenceRepository(conn),
	}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	mail := &fakeEmail{}

	svc := NewNotificationService(stores, mail, opts)
	svc.now = clock.Now

	return &TestSetup{
		DB:                  conn,
		Stores:              stores,
		Email:               mail,
		Clock:               clock,
		NotificationService: svc,
		PreferenceService:   NewPreferenceService(stores.Preferences),
		ctx:                 context.Background(),
	}
}

func testOptions() NotificationOptions {
	opts := DefaultNotificationOptions()
	opts.RetryDelay = time.Millisecond
	return opts
}
