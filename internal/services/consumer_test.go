package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valura/notification/internal/broker"
	"github.com/valura/notification/internal/db/models"
)

func TestQueueHandlers(t *testing.T) {
	ts := NewTestSetup(t, testOptions())
	handlers := ts.NotificationService.QueueHandlers()
	require.Len(t, handlers, len(models.Channels))

	t.Run("email delivered", func(t *testing.T) {
		err := handlers[models.ChannelEmail](ts.ctx, []byte(`{"to":"alice@example.com","subject":"s","body":"b"}`))
		require.NoError(t, err)
		require.Len(t, ts.Email.sent, 1)
	})

	t.Run("duplicate is permanent", func(t *testing.T) {
		ts.Clock.Advance(time.Minute)
		err := handlers[models.ChannelEmail](ts.ctx, []byte(`{"to":"alice@example.com","subject":"s","body":"b"}`))
		require.ErrorIs(t, err, ErrDuplicate)
		assert.True(t, broker.IsPermanent(err))
	})

	t.Run("malformed payloads are permanent", func(t *testing.T) {
		for ch, body := range map[models.Channel]string{
			models.ChannelEmail: `{"to":`,
			models.ChannelSMS:   `[]`,
			models.ChannelPush:  `{"title":"no recipient"}`,
		} {
			err := handlers[ch](ts.ctx, []byte(body))
			require.ErrorIs(t, err, ErrInvalidMessage, ch)
			assert.True(t, broker.IsPermanent(err), ch)
		}
	})

	t.Run("provider failure is not permanent", func(t *testing.T) {
		ts.Email.failures = -1
		defer func() { ts.Email.failures = 0 }()
		ts.Clock.Advance(time.Minute)
		err := handlers[models.ChannelEmail](ts.ctx, []byte(`{"to":"bob@example.com","subject":"s","body":"b"}`))
		require.Error(t, err)
		assert.False(t, broker.IsPermanent(err))
	})

	t.Run("sms delivered", func(t *testing.T) {
		err := handlers[models.ChannelSMS](ts.ctx, []byte(`{"phone":"+15550100","message":"hi"}`))
		require.NoError(t, err)
	})
}

func TestSettle(t *testing.T) {
	assert.NoError(t, settle(nil))
	assert.True(t, broker.IsPermanent(settle(ErrDailyLimit)))
	assert.False(t, broker.IsPermanent(settle(errors.New("db down"))))
}
