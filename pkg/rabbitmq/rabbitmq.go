// Package rabbitmq publishes and consumes order lifecycle events.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"etalase/internal/models"

	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

const (
	// DefaultExchange is the topic exchange order events go to.
	DefaultExchange = "orders"
	// DefaultQueue is bound to every order event.
	DefaultQueue = "order_events"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

// NewClient connects, declares the topic exchange and binds the event queue to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("rabbitmq connected")

	return &Client{conn: conn, channel: ch, exchange: cfg.Exchange, queue: cfg.Queue}, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, "order.#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishOrderEvent publishes event with its type as routing key.
func (c *Client) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		c.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         event.Type,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	log.Debug().Str("event", event.Type).Str("order_id", event.OrderID).Msg("order event published")
	return nil
}

// ConsumeOrderEvents delivers queued events to handler in a goroutine.
// Events the handler rejects are requeued; undecodable ones are dropped.
func (c *Client) ConsumeOrderEvents(handler func(models.OrderEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			Dispatch(msg, handler)
		}
		log.Info().Str("queue", c.queue).Msg("order event consumer stopped")
	}()
	return nil
}

// Acknowledger is the subset of amqp.Delivery that Dispatch settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Dispatch decodes one delivery, runs handler and settles the delivery.
func Dispatch(msg amqp.Delivery, handler func(models.OrderEvent) error) {
	settle(msg, msg.Body, msg.DeliveryTag, handler)
}

func settle(ack Acknowledger, body []byte, tag uint64, handler func(models.OrderEvent) error) {
	event, err := DecodeEvent(body)
	if err != nil {
		log.Warn().Err(err).Uint64("tag", tag).Msg("dropping undecodable order event")
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Uint64("tag", tag).Msg("nack failed")
		}
		return
	}
	if err := handler(event); err != nil {
		log.Warn().Err(err).Uint64("tag", tag).Str("event", event.Type).Msg("order event handler failed, requeueing")
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Uint64("tag", tag).Msg("nack failed")
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Uint64("tag", tag).Msg("ack failed")
	}
}

// DecodeEvent parses an order event body.
func DecodeEvent(body []byte) (models.OrderEvent, error) {
	var event models.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if event.Type == "" || event.OrderID == "" {
		return models.OrderEvent{}, fmt.Errorf("decode order event: missing type or order id")
	}
	return event, nil
}
