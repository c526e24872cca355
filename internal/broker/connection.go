package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valura/notification/config"
	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/logger"
)

// Connection is a RabbitMQ connection with the notification topology declared
type Connection struct {
	conn     *amqp.Connection
	exchange string
	prefetch int
}

// Dial connects to RabbitMQ, retrying while the broker is unreachable, and declares the topology
func Dial(ctx context.Context, cfg config.RabbitMQConfig) (*Connection, error) {
	attempts := cfg.DialAttempts
	if attempts == 0 {
		attempts = 1
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := retry.DoWithData(func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.URL)
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cfg.DialDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("RabbitMQ not reachable (attempt %d/%d): %v", n+1, attempts, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()
	if err := Declare(ch, exchange); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Infof("Connected to RabbitMQ, exchange %s declared", exchange)
	return &Connection{conn: conn, exchange: exchange, prefetch: cfg.Prefetch}, nil
}

// Exchange returns the name of the declared exchange
func (c *Connection) Exchange() string {
	return c.exchange
}

// Publisher opens a dedicated channel for publishing
func (c *Connection) Publisher() (*Publisher, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	return NewPublisher(ch, c.exchange), nil
}

// Consume starts count consumers per channel queue, each on its own AMQP channel.
// Every consumer calls wg.Done when it stops.
func (c *Connection) Consume(ctx context.Context, wg *sync.WaitGroup, handlers map[models.Channel]Handler, count int) error {
	if count <= 0 {
		count = 1
	}
	for _, r := range Routes {
		h, ok := handlers[r.Channel]
		if !ok {
			continue
		}
		for i := 0; i < count; i++ {
			ch, err := c.conn.Channel()
			if err != nil {
				return fmt.Errorf("failed to open consume channel: %w", err)
			}
			if c.prefetch > 0 {
				if err := ch.Qos(c.prefetch, 0, false); err != nil {
					return fmt.Errorf("failed to set prefetch: %w", err)
				}
			}
			tag := fmt.Sprintf("%s-%d-%d", r.Channel, i, time.Now().UnixNano())
			deliveries, err := ch.Consume(r.Queue, tag, false, false, false, false, nil)
			if err != nil {
				return fmt.Errorf("failed to consume %s: %w", r.Queue, err)
			}

			wg.Add(1)
			go func(queue string, ch *amqp.Channel) {
				defer wg.Done()
				defer func() { _ = ch.Close() }()
				Run(ctx, queue, deliveries, h)
			}(r.Queue, ch)
		}
	}
	return nil
}

// Close closes the connection and every channel opened on it
func (c *Connection) Close() error {
	return c.conn.Close()
}
