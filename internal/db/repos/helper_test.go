package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/valura/notification/internal/db"
	"github.com/valura/notification/internal/db/models"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db            *gorm.DB
	ctx           context.Context
	now           time.Time
	notifications *NotificationRepository
	frequencies   *FrequencyRepository
	preferences   *PreferenceRepository
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// Every test gets its own named in-memory database
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_json=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.Migrate(conn)
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = conn
	s.notifications = NewNotificationRepository(s.db)
	s.frequencies = NewFrequencyRepository(s.db)
	s.preferences = NewPreferenceRepository(s.db)
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) createNotification(recipient string, channel models.Channel, body string, at time.Time) *models.Notification {
	n := models.NewNotification(recipient, "title", body, channel, at)
	s.Require().NoError(s.notifications.Create(s.ctx, n))
	return n
}

func (s *DBRepositoryTestSuite) createNotificationWithStatus(recipient string, status models.NotificationStatus, at time.Time) *models.Notification {
	n := models.NewNotification(recipient, "title", uuid.NewString(), models.ChannelEmail, at)
	n.Status = status
	s.Require().NoError(s.notifications.Create(s.ctx, n))
	return n
}

// TestDBRepository runs the test suite for the DBRepository to verify no panic
func TestDBRepository(t *testing.T) {
	suite.Run(t, new(DBRepositoryTestSuite))
}
