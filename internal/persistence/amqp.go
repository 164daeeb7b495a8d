package persistence

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/config"
)

// RabbitMQ holds the broker connection and a channel with the notification queue declared.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Queue   string
}

// NewRabbitMQ dials the broker when a DSN is provided and declares the durable queue.
func NewRabbitMQ(cfg config.RabbitMQConfig, logger *zap.Logger) (*RabbitMQ, error) {
	if cfg.DSN == "" {
		logger.Warn("RABBITMQ_DSN not provided; notifications stay in-process")
		return &RabbitMQ{Queue: cfg.Queue}, nil
	}

	conn, err := amqp.Dial(cfg.DSN)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := DeclareQueue(ch, cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq", zap.String("queue", cfg.Queue))
	return &RabbitMQ{Conn: conn, Channel: ch, Queue: cfg.Queue}, nil
}

// DeclareQueue declares the durable, non-exclusive notification queue.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Enabled reports whether a broker channel is available.
func (r *RabbitMQ) Enabled() bool {
	return r != nil && r.Channel != nil
}

// Ping reports whether the connection is still open.
func (r *RabbitMQ) Ping(context.Context) error {
	if !r.Enabled() {
		return errors.New("rabbitmq not configured")
	}
	if r.Conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() {
	if r == nil {
		return
	}
	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
