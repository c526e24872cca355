package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valura/notification/internal/db/models"
)

func TestLaunchSweeper(t *testing.T) {
	ts := NewTestSetup(t, testOptions())

	stuck := models.NewNotification("alice", "t", "b", models.ChannelSMS, ts.Clock.Now().Add(-time.Hour))
	stuck.Status = models.NotificationStatusProcessing
	require.NoError(t, ts.Stores.Notifications.Create(ts.ctx, stuck))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go LaunchSweeper(ctx, &wg, ts.NotificationService, 10*time.Millisecond, 10*time.Minute)

	require.Eventually(t, func() bool {
		n, err := ts.NotificationService.Get(ts.ctx, stuck.ID)
		return err == nil && n.Status == models.NotificationStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
