package services

import (
	"context"
	"sync"
	"time"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/events"
	"github.com/valura/notification/internal/logger"
)

const (
	// InterruptedMessage is recorded on notifications the sweeper fails
	InterruptedMessage = "Dispatch interrupted"

	sweepBatch = 100
)

// SweepStale marks notifications stuck in processing for longer than
// staleAfter as failed and returns how many it changed
func (s *Notification) SweepStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := s.notifications.ListStale(ctx, models.NotificationStatusProcessing, s.now().Add(-staleAfter), sweepBatch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		n := &stale[i]
		n.SetOutcome(models.NotificationStatusFailed, false, InterruptedMessage, s.now())
		if err := s.notifications.Update(ctx, n); err != nil {
			logger.Errorf("Sweeper failed to update notification %s: %v", n.ID, err)
			continue
		}
		events.Publish(events.EventFor(events.EventNotificationFailed, n))
		swept++
	}
	return swept, nil
}

// LaunchSweeper runs SweepStale every interval until ctx is done
func LaunchSweeper(ctx context.Context, wg *sync.WaitGroup, svc *Notification, interval, staleAfter time.Duration) {
	defer wg.Done()

	logger.Info("Sweeper started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sweeper received shutdown signal, stopping...")
			return
		case <-time.After(interval):
		}

		swept, err := svc.SweepStale(ctx, staleAfter)
		if err != nil {
			logger.Errorf("Sweeper error fetching stale notifications: %v", err)
			continue
		}
		if swept == 0 {
			logger.Debug("Sweeper: No stale notifications")
			continue
		}
		logger.Infof("Sweeper marked %d stale notifications as failed", swept)
	}
}
