package broker

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valura/notification/internal/logger"
)

// HandlerTimeout bounds the processing of one delivery
const HandlerTimeout = 2 * time.Minute

// Handler processes the body of one delivery
type Handler func(ctx context.Context, body []byte) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as a failure redelivery cannot fix, so the message is rejected
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Run handles deliveries until ctx is done or the delivery channel closes
func Run(ctx context.Context, queue string, deliveries <-chan amqp.Delivery, h Handler) {
	logger.Infof("Consumer started on %s", queue)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Consumer on %s received shutdown signal, stopping...", queue)
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warnf("Delivery channel for %s closed", queue)
				return
			}
			Dispatch(ctx, queue, d, h)
		}
	}
}

// Dispatch runs h on one delivery and settles it. Success acks. Permanent
// failures are rejected and every other failure is nacked without requeue.
// A handler cut short by its context is nacked with requeue.
//
// h runs detached from ctx, so a delivery that is in flight when shutdown
// starts still finishes within HandlerTimeout.
func Dispatch(ctx context.Context, queue string, d amqp.Delivery, h Handler) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HandlerTimeout)
	defer cancel()

	err := h(hctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			logger.Errorf("Failed to ack message %s on %s: %v", d.MessageId, queue, ackErr)
		}
	case IsPermanent(err):
		logger.Warnf("Rejecting message %s on %s: %v", d.MessageId, queue, err)
		if rejErr := d.Reject(false); rejErr != nil {
			logger.Errorf("Failed to reject message %s on %s: %v", d.MessageId, queue, rejErr)
		}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		logger.Warnf("Requeueing interrupted message %s on %s: %v", d.MessageId, queue, err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.Errorf("Failed to nack message %s on %s: %v", d.MessageId, queue, nackErr)
		}
	default:
		logger.Errorf("Failed to process message %s on %s: %v", d.MessageId, queue, err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.Errorf("Failed to nack message %s on %s: %v", d.MessageId, queue, nackErr)
		}
	}
}
