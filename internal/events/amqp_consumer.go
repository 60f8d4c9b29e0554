package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxConsumerBackoff = 30 * time.Second

// AMQPConsumer reads ticket events back from the queue.
type AMQPConsumer struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewAMQPConsumer builds a consumer for url. An empty queue uses DefaultQueue.
func NewAMQPConsumer(url, queue string, logger *zap.Logger) *AMQPConsumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPConsumer{url: url, queue: queue, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff. Messages that fail
// to decode or that the handler rejects are nacked without requeue.
func (c *AMQPConsumer) Run(ctx context.Context, handler EventHandler) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("rabbitmq dial failed; retrying", zap.Duration("backoff", backoff), zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxConsumerBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, handler)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AMQPConsumer) consume(ctx context.Context, conn *amqp.Connection, handler EventHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("set qos failed", zap.Error(err))
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body, handler); err != nil {
				c.logger.Warn("handle event failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, body []byte, handler EventHandler) error {
	event, err := DecodeEvent(body)
	if err != nil {
		return err
	}
	return handler(ctx, event)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
