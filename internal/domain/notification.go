package domain

import "time"

// NotificationType categorizes feed entries.
type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationWarning NotificationType = "WARNING"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationError   NotificationType = "ERROR"
)

// Notification is a per-user feed entry produced as a mutation side effect.
type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	Type      NotificationType
	TicketID  *int64
	Read      bool
	CreatedAt time.Time
}
