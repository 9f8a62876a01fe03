package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"

	"smooth/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// QueueName is the durable queue record events are published to.
const QueueName = "record_events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the record
// events queue.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("rabbitmq connected", zap.String("queue", QueueName))
	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func declare(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", QueueName, err)
	}
	return q, nil
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
	return errors.Join(errs...)
}

// PublishRecordEvent publishes event as persistent JSON. The routing key is
// kept in the message type so consumers can filter without decoding.
func (c *Client) PublishRecordEvent(event models.RecordEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal record event: %w", err)
	}

	err = c.channel.Publish(
		"",        // default exchange
		QueueName, // routing key: the queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.RoutingKey(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("record event sent", zap.String("event", event.RoutingKey()), zap.String("key", event.Key))
	return nil
}

// ConsumeRecordEvents starts a goroutine handing every queued event to
// handler. Events are acked when handler succeeds and requeued otherwise;
// undecodable messages are dropped.
func (c *Client) ConsumeRecordEvents(handler func(models.RecordEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declare(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name,
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

	c.logger.Info("waiting for record events", zap.String("queue", queue.Name))
	go func() {
		for msg := range msgs {
			deliver(msg, handler, c.logger)
		}
	}()
	return nil
}

func deliver(msg amqp.Delivery, handler func(models.RecordEvent) error, logger *zap.Logger) {
	var event models.RecordEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logger.Warn("dropping undecodable record event", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			logger.Error("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := handler(event); err != nil {
		logger.Warn("record event handler failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
		// Redelivered messages are dropped so a poison event cannot loop.
		if err := msg.Nack(false, !msg.Redelivered); err != nil {
			logger.Error("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("ack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
	}
}

// LogRecordEvent is a handler for ConsumeRecordEvents that logs each event.
func LogRecordEvent(logger *zap.Logger) func(models.RecordEvent) error {
	return func(event models.RecordEvent) error {
		logger.Info("record event",
			zap.String("event", event.RoutingKey()),
			zap.String("key", event.Key),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
