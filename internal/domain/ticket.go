package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ValidTicketStatus reports whether s is a known status value.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ValidTicketPriority reports whether p is a known priority value.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Subject and description length limits enforced on create and update.
const (
	MaxSubjectLen     = 200
	MaxDescriptionLen = 4000
)

// Ticket is the aggregate for support requests. References to users and
// categories are held as ids only; reverse lookups go through indexed
// queries, never through object graphs.
type Ticket struct {
	ID           int64
	ExternalKey  string
	Subject      string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	CategoryID   *int64
	CreatedByID  int64
	AssignedToID *int64
	Resolution   *string
	DueDate      *time.Time
	ResolvedAt   *time.Time
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TicketStats aggregates counts for the reporting endpoints.
type TicketStats struct {
	Total             int64  `json:"total"`
	Open              int64  `json:"open"`
	InProgress        int64  `json:"in_progress"`
	Resolved          int64  `json:"resolved"`
	Closed            int64  `json:"closed"`
	HighPriority      int64  `json:"high_priority"`
	MediumPriority    int64  `json:"medium_priority"`
	LowPriority       int64  `json:"low_priority"`
	AvgResolutionTime string `json:"avg_resolution_time"`
}
