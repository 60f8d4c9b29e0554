package worker

import (
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a publisher is given,
// forwards every ticket event to the message broker.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, publisher *events.AMQPPublisher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if publisher != nil && dispatcher != nil {
		publisher.Register(dispatcher)
	}
}
