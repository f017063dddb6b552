package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp.Channel is not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details and the queues to declare.
type Config struct {
	URL    string
	Queues []string
}

// NewClient connects to RabbitMQ, opens a channel and declares every
// configured queue as durable.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range cfg.Queues {
		if err := declare(ch, queue); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	zap.L().Info("RabbitMQ client connected", zap.Strings("queues", cfg.Queues))

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declare(ch *amqp.Channel, queue string) error {
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

// Close closes the RabbitMQ channel and connection.
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
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to queue through the default exchange.
func (c *Client) Publish(queue string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		"",    // default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", queue, err)
	}
	return nil
}

// Consume delivers messages of queue to handler in a background goroutine.
// A nil handler result acks the message; an error nacks it without requeue so
// poison messages do not loop.
func (c *Client) Consume(queue string, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer for %s: %w", queue, err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				zap.L().Warn("message processing failed",
					zap.String("queue", queue), zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
				if nackErr := msg.Nack(false, false); nackErr != nil {
					zap.L().Error("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				zap.L().Error("ack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
		zap.L().Info("consumer stopped", zap.String("queue", queue))
	}()

	return nil
}
