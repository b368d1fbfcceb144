package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventConsumer reads shop events back off ExchangeName
type EventConsumer struct {
	channel *amqp.Channel
}

// Subscribe binds a private, auto-deleted queue to ExchangeName with
// bindingKey ("#" for everything, "checkout.*" for checkouts only) and
// delivers decoded events until ctx is done or the channel closes.
// Malformed bodies are logged and skipped.
func (c *EventConsumer) Subscribe(ctx context.Context, bindingKey string) (<-chan Event, error) {
	queue, err := c.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(
		queue.Name,   // queue name
		bindingKey,   // routing key
		ExchangeName, // exchange
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming shop events",
		slog.String("queue", queue.Name),
		slog.String("binding_key", bindingKey))

	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("event consumer channel closed")
					return
				}

				ev, err := decodeEvent(msg.Body)
				if err != nil {
					slog.Error("error unmarshaling event",
						slog.String("error", err.Error()),
						slog.String("body", string(msg.Body)))
					continue
				}

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func decodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	return ev, nil
}
