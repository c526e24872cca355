// Package broker connects the service to RabbitMQ: topology, publishing and consuming
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valura/notification/internal/db/models"
)

const (
	// DefaultExchange is the topic exchange all notification queues are bound to
	DefaultExchange = "notification.exchange"
	// ExchangeKind is the AMQP exchange type used for routing
	ExchangeKind = amqp.ExchangeTopic
)

// Route binds a notification channel to its queue and routing key
type Route struct {
	Channel    models.Channel
	Queue      string
	RoutingKey string
}

// Routes lists the queue of every channel
var Routes = []Route{
	{Channel: models.ChannelEmail, Queue: "notification.email.send.queue", RoutingKey: "notification.email.send"},
	{Channel: models.ChannelSMS, Queue: "notification.sms.send.queue", RoutingKey: "notification.sms.send"},
	{Channel: models.ChannelPush, Queue: "notification.push.send.queue", RoutingKey: "notification.push.send"},
}

// RouteFor returns the route of a channel
func RouteFor(channel models.Channel) (Route, error) {
	for _, r := range Routes {
		if r.Channel == channel {
			return r, nil
		}
	}
	return Route{}, fmt.Errorf("no queue for channel: %s", channel)
}

// declarer is the part of *amqp.Channel needed to declare the topology
type declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare creates the durable exchange, the queues and their bindings. It is idempotent.
func Declare(ch declarer, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	for _, r := range Routes {
		if _, err := ch.QueueDeclare(r.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", r.Queue, err)
		}
		if err := ch.QueueBind(r.Queue, r.RoutingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", r.Queue, err)
		}
	}
	return nil
}
