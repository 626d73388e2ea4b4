package worker

import (
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartSubscribers registers the fire-and-forget event subscribers.
func StartSubscribers(notifications *service.NotificationService, audit *service.AuditService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if audit != nil {
		audit.RegisterHandlers()
	}
}
