package worker

import (
	"github.com/creatorlane/marketplace/internal/service"
)

// StartEventWorkers registers the background event handlers: notification
// fanout, chat mirroring, and ticket auto-assignment.
func StartEventWorkers(
	notifications *service.NotificationService,
	chat *service.ChatService,
	assignments *service.AssignmentService,
) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if chat != nil {
		chat.RegisterHandlers()
	}
	if assignments != nil {
		assignments.RegisterHandlers()
	}
}
