package worker

import (
	"github.com/mediconnect/clinic-queue/internal/broadcast"
	"github.com/mediconnect/clinic-queue/internal/service"
)

// StartNotificationWorker registers event handlers and runs the
// websocket hub loop.
func StartNotificationWorker(notificationService *service.NotificationService, hub *broadcast.Hub) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if hub != nil {
		go hub.Run()
	}
}
