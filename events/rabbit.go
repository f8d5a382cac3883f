package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	Exchange = "platform.events"
	Queue    = "platform.status_notifications"
)

type Rabbit struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
	log     zerolog.Logger
}

func NewRabbit(url string, log zerolog.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	r := &Rabbit{conn: conn, channel: ch, log: log.With().Str("component", "rabbit").Logger()}
	if err := r.setup(); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Info().Str("exchange", Exchange).Str("queue", Queue).Msg("RabbitMQ initialized")
	return r, nil
}

func (r *Rabbit) setup() error {
	if err := r.channel.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := r.channel.QueueBind(Queue, "*.status_changed", Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

func (r *Rabbit) Publish(ctx context.Context, evt StatusChanged) error {
	body, err := sonic.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	err = r.channel.PublishWithContext(ctx,
		Exchange,
		string(evt.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

// Consume delivers queued events to handler until ctx is cancelled. A failed
// delivery is requeued once and dropped on the second failure.
func (r *Rabbit) Consume(ctx context.Context, handler Handler) error {
	msgs, err := r.channel.Consume(
		Queue,
		"platform-notifier",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					r.log.Warn().Msg("delivery channel closed")
					return
				}
				r.deliver(ctx, d, handler)
			}
		}
	}()

	r.log.Info().Str("queue", Queue).Msg("started consuming")
	return nil
}

func (r *Rabbit) deliver(ctx context.Context, d amqp.Delivery, handler Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("recovered in event handler")
			_ = d.Nack(false, false)
		}
	}()

	var evt StatusChanged
	if err := sonic.Unmarshal(d.Body, &evt); err != nil {
		r.log.Warn().Err(err).Bytes("body", d.Body).Msg("dropping malformed event")
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, evt); err != nil {
		r.log.Warn().Err(err).
			Str("type", string(evt.Type)).
			Str("reference", evt.Reference).
			Bool("redelivered", d.Redelivered).
			Msg("failed to process event")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (r *Rabbit) Close() {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.log.Info().Msg("RabbitMQ connection closed")
}
