package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valura/notification/internal/db/models"
)

func reset() {
	handlersMu.Lock()
	handlers = make(map[EventType][]Handler)
	handlersMu.Unlock()
	eventChan = make(chan Event, EventChannelSize)
}

func waitFor(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for event handler")
	}
}

func TestEventSystem(t *testing.T) {
	t.Run("Subscribe and Publish", func(t *testing.T) {
		reset()

		var wg sync.WaitGroup
		wg.Add(1)

		var receivedEvent Event
		testHandler := func(_ context.Context, event Event) error {
			receivedEvent = event
			wg.Done()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Start(ctx)
		Subscribe(EventNotificationDelivered, testHandler)

		n := models.NewNotification("alice", "t", "b", models.ChannelEmail, time.Now())
		n.SetOutcome(models.NotificationStatusDelivered, true, "email sent successfully via smtp.", time.Now())
		testEvent := EventFor(EventNotificationDelivered, n)

		Publish(testEvent)
		waitFor(t, &wg)

		assert.Equal(t, testEvent, receivedEvent)
		assert.Equal(t, n.ID, receivedEvent.NotificationID)
		assert.Equal(t, models.ChannelEmail, receivedEvent.Channel)
		assert.Equal(t, models.NotificationStatusDelivered, receivedEvent.Status)
	})

	t.Run("Multiple Handlers", func(t *testing.T) {
		reset()

		var wg sync.WaitGroup
		wg.Add(2)

		handlerCalls := make(map[string]bool)
		var mu sync.Mutex
		record := func(name string) Handler {
			return func(_ context.Context, _ Event) error {
				mu.Lock()
				handlerCalls[name] = true
				mu.Unlock()
				wg.Done()
				return nil
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Start(ctx)
		Subscribe(EventNotificationFailed, record("handler1"))
		Subscribe(EventNotificationFailed, record("handler2"))

		Publish(Event{Type: EventNotificationFailed, NotificationID: "n-1"})
		waitFor(t, &wg)

		mu.Lock()
		assert.True(t, handlerCalls["handler1"], "Handler 1 should have been called")
		assert.True(t, handlerCalls["handler2"], "Handler 2 should have been called")
		mu.Unlock()
	})

	t.Run("Different Event Types", func(t *testing.T) {
		reset()

		var wg sync.WaitGroup
		wg.Add(2)

		received := make(map[EventType]bool)
		var mu sync.Mutex
		handler := func(_ context.Context, event Event) error {
			mu.Lock()
			received[event.Type] = true
			mu.Unlock()
			wg.Done()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Start(ctx)
		Subscribe(EventNotificationBlocked, handler)
		Subscribe(EventNotificationDelivered, handler)

		Publish(Event{Type: EventNotificationBlocked, NotificationID: "n-1"})
		Publish(Event{Type: EventNotificationDelivered, NotificationID: "n-2"})
		waitFor(t, &wg)

		mu.Lock()
		assert.True(t, received[EventNotificationBlocked])
		assert.True(t, received[EventNotificationDelivered])
		mu.Unlock()
	})

	t.Run("Publish Never Blocks", func(t *testing.T) {
		reset()

		// Nothing drains the channel, so the last publish must be dropped
		done := make(chan struct{})
		go func() {
			for i := 0; i <= EventChannelSize; i++ {
				Publish(Event{Type: EventNotificationFailed})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Publish blocked on a full buffer")
		}
		require.Len(t, eventChan, EventChannelSize)
	})

	t.Run("Log Outcomes", func(t *testing.T) {
		reset()
		LogOutcomes()

		handlersMu.RLock()
		defer handlersMu.RUnlock()
		for _, et := range []EventType{EventNotificationDelivered, EventNotificationFailed, EventNotificationBlocked} {
			assert.Len(t, handlers[et], 1, et)
		}
	})
}
