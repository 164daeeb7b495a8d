package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RelayedEvents are forwarded to the notification queue.
var RelayedEvents = []EventType{
	EventStaffAssigned,
	EventBookingCancelled,
	EventPasswordResetRequested,
}

// Publisher is the subset of *amqp.Channel the relay needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPRelay forwards dispatcher events to a durable RabbitMQ queue.
type AMQPRelay struct {
	publisher Publisher
	queue     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAMQPRelay builds a relay. A nil publisher yields a relay that drops events.
func NewAMQPRelay(publisher Publisher, queue string, timeout time.Duration, logger *zap.Logger) *AMQPRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPRelay{publisher: publisher, queue: queue, timeout: timeout, logger: logger}
}

// Register subscribes the relay to every relayed event type.
func (r *AMQPRelay) Register(dispatcher Dispatcher) {
	for _, eventType := range RelayedEvents {
		dispatcher.Subscribe(eventType, r.Handle)
	}
}

// Handle publishes event as persistent JSON.
func (r *AMQPRelay) Handle(ctx context.Context, event Event) error {
	if r.publisher == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err = r.publisher.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	r.logger.Debug("event relayed", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
	return nil
}
