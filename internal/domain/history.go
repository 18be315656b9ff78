package domain

import "time"

// HistoryAction tags what kind of change a history entry records.
type HistoryAction string

const (
	ActionCreated           HistoryAction = "CREATED"
	ActionStatusChanged     HistoryAction = "STATUS_CHANGED"
	ActionPriorityChanged   HistoryAction = "PRIORITY_CHANGED"
	ActionAssignmentChanged HistoryAction = "ASSIGNMENT_CHANGED"
	ActionCategoryChanged   HistoryAction = "CATEGORY_CHANGED"
	ActionFieldChanged      HistoryAction = "FIELD_CHANGED"
)

// HistoryEntry is an immutable audit record of one field-level change.
// Entries are only ever appended, never updated or deleted individually;
// they go away with their ticket.
type HistoryEntry struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Action    HistoryAction
	Field     string
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
