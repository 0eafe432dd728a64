package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"agribuddy/internal/models"

	amqp "github.com/streadway/amqp"
)

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client publishes and consumes user account events.
type Client struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	logger  *slog.Logger
	mu      sync.Mutex // guards publishing on channel
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(ch, cfg.Queue, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newClient(ch channel, queue string, logger *slog.Logger) (*Client, error) {
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	logger.Info("RabbitMQ client connected", "queue", queue)
	return &Client{
		channel: ch,
		queue:   queue,
		logger:  logger,
	}, nil
}

func declare(ch channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
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

// PublishUserEvent publishes event as a persistent JSON message on the event queue.
func (c *Client) PublishUserEvent(ctx context.Context, event models.UserEvent) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal user event: %w", err)
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "published user event", "type", event.Type, "userId", event.UserID)
	return nil
}

// ConsumeUserEvents delivers decoded events to handler until the channel closes.
// Messages are acked when handler succeeds and requeued when it fails.
// Messages that cannot be decoded are dropped.
func (c *Client) ConsumeUserEvents(handler func(models.UserEvent) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("waiting for user events", "queue", c.queue)

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(models.UserEvent) error) {
	var event models.UserEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Warn("dropping undecodable message", "tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("failed to nack message", "tag", msg.DeliveryTag, "error", err)
		}
		return
	}

	if err := handler(event); err != nil {
		c.logger.Error("failed to process user event", "tag", msg.DeliveryTag, "error", err)
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("failed to nack message", "tag", msg.DeliveryTag, "error", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "tag", msg.DeliveryTag, "error", err)
	}
}

// AuditHandler logs each event. It is the default consumer for the event queue.
func AuditHandler(logger *slog.Logger) func(models.UserEvent) error {
	return func(event models.UserEvent) error {
		logger.Info("user event",
			"type", event.Type,
			"userId", event.UserID,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
