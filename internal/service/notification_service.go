package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/config"
	"github.com/spec-kit/staff-assignment/internal/events"
)

// NotificationService logs domain events. Email delivery happens out of
// process: the AMQP relay forwards events to the mailer.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventBookingCreated, n.handleBookingCreated)
	n.dispatcher.Subscribe(events.EventStaffAssigned, n.handleStaffAssigned)
	n.dispatcher.Subscribe(events.EventStaffUnassigned, n.handleStaffUnassigned)
	n.dispatcher.Subscribe(events.EventBookingCancelled, n.handleBookingCancelled)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordReset)
}

func (n *NotificationService) handleBookingCreated(_ context.Context, event events.Event) error {
	n.logger.Info("BookingCreated", zap.String("booking_id", event.BookingID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleStaffAssigned(_ context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("booking_id", event.BookingID)}
	if p, ok := event.Payload.(events.StaffAssignedPayload); ok {
		fields = append(fields, zap.String("staff_id", p.StaffID), zap.Bool("auto", p.Auto))
		n.logEmail(event, p.StaffEmail)
	}
	n.logger.Info("StaffAssigned", fields...)
	return nil
}

func (n *NotificationService) handleStaffUnassigned(_ context.Context, event events.Event) error {
	n.logger.Info("StaffUnassigned", zap.String("booking_id", event.BookingID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleBookingCancelled(_ context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.BookingCancelledPayload); ok && p.AssigneeEmail != "" {
		n.logEmail(event, p.AssigneeEmail)
	}
	n.logger.Info("BookingCancelled", zap.String("booking_id", event.BookingID))
	return nil
}

func (n *NotificationService) handlePasswordReset(_ context.Context, event events.Event) error {
	// the payload carries the reset link and is not logged
	if p, ok := event.Payload.(events.PasswordResetRequestedPayload); ok {
		n.logEmail(event, p.Email)
	}
	n.logger.Info("PasswordResetRequested", zap.String("event_id", event.ID))
	return nil
}

func (n *NotificationService) logEmail(event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("email queued",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID))
}
