package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/observability"
	"shopping-portal/internal/state"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publishTimeout bounds a single publish so a stalled broker never holds up
// the operation that produced the event
const publishTimeout = 2 * time.Second

const maxRetryDelay = 8 * time.Second

// publisher is the part of *amqp.Channel the EventPublisher needs
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry keeps dialing url until it succeeds or ctx is done,
// doubling the wait between attempts up to maxRetryDelay
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	delay := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not reachable, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up on rabbitmq after %d attempts: %w", attempt, err)
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully", slog.String("exchange", ExchangeName))
	return nil
}

// Publisher returns an EventPublisher writing to this connection's channel
func (r *RabbitMQ) Publisher() *EventPublisher {
	return NewEventPublisher(r.channel)
}

// Consumer returns an EventConsumer reading from this connection's channel
func (r *RabbitMQ) Consumer() *EventConsumer {
	return &EventConsumer{channel: r.channel}
}

// Ping reports an error when the broker connection is gone
func (r *RabbitMQ) Ping(context.Context) error {
	if r.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EventPublisher mirrors notices and checkout outcomes onto ExchangeName.
// It implements notify.Notifier and state.CheckoutObserver. Publish
// failures are logged and dropped.
type EventPublisher struct {
	ch  publisher
	now func() time.Time
}

func NewEventPublisher(ch publisher) *EventPublisher {
	return &EventPublisher{ch: ch, now: time.Now}
}

func (p *EventPublisher) Notify(ctx context.Context, n domain.Notice) {
	p.publish(ctx, noticeEvent(n, p.now()))
}

func (p *EventPublisher) CheckoutFinished(ctx context.Context, o state.CheckoutOutcome) {
	p.publish(ctx, checkoutEvent(o, p.now()))
}

// Publish sends ev and returns the broker error, if any
func (p *EventPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		ExchangeName,
		ev.RoutingKey(),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Unix(ev.Timestamp, 0),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, ev Event) {
	// the operation's own deadline must not cancel the mirror copy
	ctx = context.WithoutCancel(ctx)
	if err := p.Publish(ctx, ev); err != nil {
		observability.FromContext(ctx).Warn("event not published",
			slog.String("routing_key", ev.RoutingKey()),
			slog.String("error", err.Error()))
		return
	}
	observability.FromContext(ctx).Debug("published event",
		slog.String("routing_key", ev.RoutingKey()))
}
