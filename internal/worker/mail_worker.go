package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/events"
)

// ErrUndeliverable marks messages that will never succeed; they are dropped
// instead of requeued.
var ErrUndeliverable = errors.New("undeliverable message")

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

var (
	assignedTemplate = template.Must(template.New("staff_assigned").Parse(
		`<p>Hello {{.StaffName}},</p>
<p>You have a new booking{{if .GuestName}} for {{.GuestName}}{{end}} from {{.StartsAt.Format "Mon 02 Jan 15:04"}} to {{.EndsAt.Format "15:04 MST"}}.</p>`))
	cancelledTemplate = template.Must(template.New("booking_cancelled").Parse(
		`<p>Your booking starting {{.StartsAt.Format "Mon 02 Jan 15:04 MST"}} has been cancelled.</p>{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}`))
	resetTemplate = template.Must(template.New("password_reset_requested").Parse(
		`<p>Someone asked to reset your password. Use the link below before {{.ExpiresAt.Format "02 Jan 15:04 MST"}}.</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>`))
)

// MailWorker turns relayed events into emails.
type MailWorker struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// NewMailWorker builds a worker sending as from.
func NewMailWorker(sender Sender, from string, logger *zap.Logger) *MailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailWorker{sender: sender, from: from, logger: logger}
}

// Compose builds the email for an event. A nil message with a nil error means
// the event needs no email.
func (w *MailWorker) Compose(env events.Envelope) (*mail.Msg, error) {
	var (
		to      string
		subject string
		tmpl    *template.Template
		data    any
	)
	switch env.Type {
	case events.EventStaffAssigned:
		var p events.StaffAssignedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndeliverable, err)
		}
		to, subject, tmpl, data = p.StaffEmail, "New booking assigned", assignedTemplate, p
	case events.EventBookingCancelled:
		var p events.BookingCancelledPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndeliverable, err)
		}
		if p.AssigneeEmail == "" {
			return nil, nil
		}
		to, subject, tmpl, data = p.AssigneeEmail, "Booking cancelled", cancelledTemplate, p
	case events.EventPasswordResetRequested:
		var p events.PasswordResetRequestedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndeliverable, err)
		}
		to, subject, tmpl, data = p.Email, "Reset your password", resetTemplate, p
	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", ErrUndeliverable, env.Type)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: %s without recipient", ErrUndeliverable, env.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(w.from); err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrUndeliverable, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrUndeliverable, err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrUndeliverable, err)
	}
	return msg, nil
}

// Process handles one queue message body.
func (w *MailWorker) Process(ctx context.Context, body []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrUndeliverable, err)
	}
	msg, err := w.Compose(env)
	if err != nil || msg == nil {
		return err
	}
	if err := w.sender.DialAndSendWithContext(ctx, msg); err != nil {
		if permanentReply(err) {
			return fmt.Errorf("%w: send %s: %v", ErrUndeliverable, env.Type, err)
		}
		return fmt.Errorf("send %s: %w", env.Type, err)
	}
	w.logger.Info("email sent", zap.String("event_id", env.ID), zap.String("type", string(env.Type)))
	return nil
}

// smtpReply is implemented by *mail.SendError.
type smtpReply interface {
	ErrorCode() int
}

// permanentReply reports a 5xx server reply, which a retry cannot fix.
func permanentReply(err error) bool {
	var reply smtpReply
	if !errors.As(err, &reply) {
		return false
	}
	code := reply.ErrorCode()
	return code >= 500 && code < 600
}

// Run consumes deliveries until ctx is done or the channel closes.
// Undeliverable messages and 5xx rejections are dropped, other send failures
// are requeued.
func (w *MailWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.settle(d, w.Process(ctx, d.Body))
		}
	}
}

func (w *MailWorker) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrUndeliverable):
		w.logger.Error("dropping message", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		w.logger.Warn("requeueing message", zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, true)
	}
}
