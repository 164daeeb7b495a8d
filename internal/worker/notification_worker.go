package worker

import (
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/service"
)

// StartNotificationWorker registers in-process notification handlers and,
// when a relay is given, forwards mail-worthy events to the broker.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, relay *events.AMQPRelay) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if relay != nil && dispatcher != nil {
		relay.Register(dispatcher)
	}
}
