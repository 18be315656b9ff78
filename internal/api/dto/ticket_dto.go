package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject      string                 `json:"subject"`
	Description  string                 `json:"description"`
	Status       *domain.TicketStatus   `json:"status"`
	Priority     *domain.TicketPriority `json:"priority"`
	CategoryID   *int64                 `json:"category_id"`
	AssignedToID *int64                 `json:"assigned_to_id"`
	DueDate      *time.Time             `json:"due_date"`
}

// TicketResponse is the flat ticket representation.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	ExternalKey  string                `json:"external_key"`
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CategoryID   *int64                `json:"category_id"`
	CreatedByID  int64                 `json:"created_by_id"`
	AssignedToID *int64                `json:"assigned_to_id"`
	Resolution   *string               `json:"resolution,omitempty"`
	DueDate      *time.Time            `json:"due_date,omitempty"`
	ResolvedAt   *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse adds resolved references, history and comments.
type TicketDetailResponse struct {
	TicketResponse
	CreatedBy  *UserResponse          `json:"created_by,omitempty"`
	AssignedTo *UserResponse          `json:"assigned_to,omitempty"`
	Category   *CategoryResponse      `json:"category,omitempty"`
	History    []HistoryEntryResponse `json:"history"`
	Comments   []CommentResponse      `json:"comments"`
}

// HistoryEntryResponse represents one audit record.
type HistoryEntryResponse struct {
	ID        int64                `json:"id"`
	TicketID  int64                `json:"ticket_id"`
	UserID    int64                `json:"user_id"`
	Action    domain.HistoryAction `json:"action"`
	Field     string               `json:"field,omitempty"`
	OldValue  *string              `json:"old_value"`
	NewValue  *string              `json:"new_value"`
	CreatedAt time.Time            `json:"created_at"`
}

// CommentResponse represents a discussion entry.
type CommentResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	UserID    int64     `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}
