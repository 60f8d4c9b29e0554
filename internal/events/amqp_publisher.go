package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue is the durable queue ticket events are routed to.
const DefaultQueue = "service_tickets.events"

// AMQPPublisher forwards events to a RabbitMQ queue. It dials per publish, so a broker outage
// costs one failed publish and never blocks startup.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewAMQPPublisher builds a publisher for url. An empty queue uses DefaultQueue.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

// Register subscribes the publisher to every ticket event.
func (p *AMQPPublisher) Register(d Dispatcher) {
	SubscribeAll(d, p.Publish)
}

// Publish sends the event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", zap.Error(err))
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, p.queue); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.logger.Warn("rabbitmq publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("queue", p.queue),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}

func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

func encodeEvent(event Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

// DecodeEvent parses a message body produced by AMQPPublisher. The payload is left as generic
// JSON values.
func DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("unmarshal event: missing type")
	}
	return event, nil
}
