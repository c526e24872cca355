package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valura/notification/internal/db/models"
)

// channelPublisher is the part of *amqp.Channel needed to publish
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends JSON payloads to the queue of a notification channel
type Publisher struct {
	mu       sync.Mutex
	ch       channelPublisher
	exchange string
	now      func() time.Time
}

// NewPublisher creates a publisher on an open AMQP channel
func NewPublisher(ch channelPublisher, exchange string) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
	}
}

// Publish marshals payload to JSON and routes it to the queue of channel.
// It returns the generated message id.
func (p *Publisher) Publish(ctx context.Context, channel models.Channel, payload interface{}) (string, error) {
	route, err := RouteFor(channel)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	id := uuid.NewString()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    p.now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, route.RoutingKey, false, false, msg); err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", route.RoutingKey, err)
	}
	return id, nil
}
