package worker

import (
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker wires notification handlers onto the event dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
