//go:build integration

package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/valura/notification/internal/db/models"
)

const (
	mongoImage = "mongo:7"
	mongoPort  = "27017/tcp"
)

type MongoRepositoryTestSuite struct {
	suite.Suite
	ctx           context.Context
	container     testcontainers.Container
	client        *Client
	notifications *NotificationRepository
	frequencies   *FrequencyRepository
	preferences   *PreferenceRepository
	now           time.Time
}

func TestMongoRepositories(t *testing.T) {
	suite.Run(t, new(MongoRepositoryTestSuite))
}

func (s *MongoRepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mongoImage,
			ExposedPorts: []string{mongoPort},
			WaitingFor:   wait.ForListeningPort(mongoPort).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err, "failed to start mongo container")
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, mongoPort)
	s.Require().NoError(err)

	client, err := Connect(s.ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "notification_test")
	s.Require().NoError(err)
	s.Require().NoError(client.EnsureIndexes(s.ctx))
	s.client = client

	db := client.Database()
	s.notifications = NewNotificationRepository(db)
	s.frequencies = NewFrequencyRepository(db)
	s.preferences = NewPreferenceRepository(db)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MongoRepositoryTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *MongoRepositoryTestSuite) SetupTest() {
	s.Require().NoError(s.client.Database().Drop(s.ctx))
	s.Require().NoError(s.client.EnsureIndexes(s.ctx))
}

func (s *MongoRepositoryTestSuite) TestNotificationLifecycle() {
	n := models.NewNotification("alice", "t", "b", models.ChannelEmail, s.now)
	s.Require().NoError(s.notifications.Create(s.ctx, n))

	n.SetOutcome(models.NotificationStatusDelivered, true, "ok", s.now.Add(time.Second))
	s.Require().NoError(s.notifications.Update(s.ctx, n))

	found, err := s.notifications.GetByID(s.ctx, n.ID)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(models.NotificationStatusDelivered, found.Status)
	s.True(found.Response.Success)

	dups, err := s.notifications.FindDuplicates(s.ctx, "alice", models.ChannelEmail, n.ContentHash, s.now.Add(-time.Minute))
	s.NoError(err)
	s.Len(dups, 1)

	latest, err := s.notifications.Latest(s.ctx, "alice")
	s.NoError(err)
	s.Require().NotNil(latest)
	s.Equal(n.ID, latest.ID)

	missing, err := s.notifications.GetByID(s.ctx, "missing")
	s.NoError(err)
	s.Nil(missing)
}

func (s *MongoRepositoryTestSuite) TestListFilters() {
	for i, ch := range models.Channels {
		n := models.NewNotification("bob", "t", fmt.Sprint(i), ch, s.now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.notifications.Create(s.ctx, n))
	}

	all, err := s.notifications.ListByRecipient(s.ctx, "bob", nil)
	s.NoError(err)
	s.Require().Len(all, 3)
	s.Equal(models.ChannelPush, all[0].ChannelType)

	sms, err := s.notifications.List(s.ctx, &models.ListOptions{Channel: models.ChannelSMS})
	s.NoError(err)
	s.Len(sms, 1)
}

func (s *MongoRepositoryTestSuite) TestFrequencyUpsert() {
	day := models.DayOf(s.now)
	s.Require().NoError(s.frequencies.Save(s.ctx, models.NewNotificationFrequency("alice", models.ChannelSMS, s.now, 1, s.now)))

	f, err := s.frequencies.Get(s.ctx, "alice", models.ChannelSMS, day)
	s.NoError(err)
	s.Require().NotNil(f)
	f.Record(s.now.Add(time.Minute))
	s.Require().NoError(s.frequencies.Save(s.ctx, f))

	rows, err := s.frequencies.ListByRecipient(s.ctx, "alice", day)
	s.NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(2, rows[0].DailyCount)
}

func (s *MongoRepositoryTestSuite) TestPreferenceReplace() {
	s.Require().NoError(s.preferences.Replace(s.ctx, models.NewUserPreference("alice", []models.NotificationChannel{
		{Type: models.ChannelEmail, Token: "a@example.com", Enabled: true},
	})))
	s.Require().NoError(s.preferences.Replace(s.ctx, models.NewUserPreference("alice", []models.NotificationChannel{
		{Type: models.ChannelSMS, Token: "+1555", Enabled: true},
	})))

	p, err := s.preferences.GetByRecipient(s.ctx, "alice")
	s.NoError(err)
	s.Require().NotNil(p)
	s.True(p.ChannelEnabled(models.ChannelSMS))
	s.False(p.ChannelEnabled(models.ChannelEmail))

	deleted, err := s.preferences.DeleteByRecipient(s.ctx, "alice")
	s.NoError(err)
	s.True(deleted)
}
