package socket

// Broadcaster pushes domain events into hub rooms.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// ProjectEvent broadcasts event to everyone in the project's room except excludeUserID.
func (b *Broadcaster) ProjectEvent(projectID, event string, payload interface{}, excludeUserID string) {
	b.hub.SendToRoom(ProjectRoom(projectID), MessageType(event), payload, excludeUserID)
}

// SendNotification pushes a stored notification to its recipient.
func (b *Broadcaster) SendNotification(userID string, notification interface{}) {
	b.hub.SendToUser(userID, MessageNotification, notification)
}

// SendNotificationCount updates the recipient's badge counters.
func (b *Broadcaster) SendNotificationCount(userID string, total, unread int) {
	b.hub.SendToUser(userID, MessageNotificationCount, map[string]interface{}{
		"total":  total,
		"unread": unread,
	})
}
