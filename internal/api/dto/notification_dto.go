package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationResponse represents one feed entry.
type NotificationResponse struct {
	ID        int64                   `json:"id"`
	UserID    int64                   `json:"user_id"`
	Message   string                  `json:"message"`
	Type      domain.NotificationType `json:"type"`
	TicketID  *int64                  `json:"ticket_id,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}
