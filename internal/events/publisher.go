package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

const (
	// ExchangeName is the durable topic exchange intake events are published to.
	ExchangeName = "carefront.intake"
	ExchangeType = "topic"
)

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes envelopes to the intake topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   *logging.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// DialRabbit connects, opens a channel and declares the exchange.
func DialRabbit(url string, logger *logging.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	p, err := newRabbitPublisher(ch, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch amqpChannel, logger *logging.Logger) (*RabbitPublisher, error) {
	if ch == nil {
		panic("events: amqp channel required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	return &RabbitPublisher{
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger.WithComponent("events"),
		now:      time.Now,
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	env, err := NewEnvelope(eventType, payload, p.now())
	if err != nil {
		return err
	}
	return p.PublishEnvelope(ctx, env)
}

// PublishEnvelope sends an already-built envelope, keeping its id.
func (p *RabbitPublisher) PublishEnvelope(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		env.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.OccurredAt,
			MessageId:    env.ID,
			Type:         env.Type,
		},
	)
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", env.Type, err)
	}
	p.logger.Debug("event published", "event_id", env.ID, "type", env.Type)
	return nil
}

// Handle lets the outbox deliverer forward stored envelopes.
func (p *RabbitPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	return p.PublishEnvelope(ctx, Envelope{
		ID:         entry.ID.String(),
		Type:       entry.Type,
		OccurredAt: entry.CreatedAt.UTC(),
		Payload:    entry.Payload,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing rabbitmq channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher logs event types and ids. It is the default when no broker is configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger.WithComponent("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	env, err := NewEnvelope(eventType, payload, time.Now())
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "domain event", "event_id", env.ID, "type", env.Type)
	return nil
}
