// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/logger"
)

// EventType represents the type of notification event
type EventType string

const (
	// EventNotificationDelivered is emitted when a provider accepted a notification
	EventNotificationDelivered EventType = "notification_delivered"
	// EventNotificationFailed is emitted when dispatch failed
	EventNotificationFailed EventType = "notification_failed"
	// EventNotificationBlocked is emitted when a pre-dispatch check rejected a notification
	EventNotificationBlocked EventType = "notification_blocked"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents the outcome of a notification
type Event struct {
	Type           EventType                 // The type of event
	NotificationID string                    // The notification ID
	RecipientID    string                    // The recipient
	Channel        models.Channel            // The delivery channel
	Status         models.NotificationStatus // The status the notification ended in
	Message        string                    // The recorded response message
}

// EventFor builds the event describing the current state of n
func EventFor(eventType EventType, n *models.Notification) Event {
	return Event{
		Type:           eventType,
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Channel:        n.ChannelType,
		Status:         n.Status,
		Message:        n.Response.Message,
	}
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

var (
	// handlers is a map of event types to their handlers
	handlers = make(map[EventType][]Handler)
	// handlersMu is a mutex for the handlers map
	handlersMu sync.RWMutex
	// eventChan is a channel for events
	eventChan = make(chan Event, EventChannelSize)
)

// Subscribe registers a handler for a specific event type
func Subscribe(eventType EventType, handler Handler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[eventType] = append(handlers[eventType], handler)
	logger.Debugf("📝 Registered handler for event type: %s", eventType)
}

// Publish queues an event for processing. It never blocks: when the buffer
// is full the event is dropped and a warning is logged.
func Publish(event Event) {
	select {
	case eventChan <- event:
		logger.Debugf("📢 Published event: %s (Notification: %s)", event.Type, event.NotificationID)
	default:
		logger.Warnf("Event buffer full, dropping %s for notification %s", event.Type, event.NotificationID)
	}
}

// Start starts the event processing loop
func Start(ctx context.Context) {
	go processEvents(ctx)
	logger.Info("🎯 Started event processing loop")
}

// processEvents handles events in the background
func processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 Stopping event processing loop")
			return
		case event := <-eventChan:
			logger.Debugf("📥 Received event %s for notification %s", event.Type, event.NotificationID)
			handlersMu.RLock()
			eventHandlers := handlers[event.Type]
			handlersMu.RUnlock()

			for _, handler := range eventHandlers {
				go func(h Handler, e Event) {
					if err := h(ctx, e); err != nil {
						logger.Errorf("❌ Failed to handle event %s: %v", e.Type, err)
					}
				}(handler, event)
			}
		}
	}
}

// LogOutcomes subscribes a handler that writes every notification outcome to the log
func LogOutcomes() {
	logOutcome := func(_ context.Context, e Event) error {
		logger.InfoWithFields("notification outcome", map[string]interface{}{
			"event":        e.Type,
			"notification": e.NotificationID,
			"recipient":    e.RecipientID,
			"channel":      e.Channel,
			"status":       e.Status,
		})
		return nil
	}
	for _, t := range []EventType{EventNotificationDelivered, EventNotificationFailed, EventNotificationBlocked} {
		Subscribe(t, logOutcome)
	}
}
