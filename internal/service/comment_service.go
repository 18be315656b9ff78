package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CommentService handles ticket discussion. Pass-through persistence plus
// best-effort notifications to the ticket creator and assignee.
type CommentService struct {
	comments      repository.CommentRepository
	tickets       repository.TicketRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewCommentService creates the service.
func NewCommentService(comments repository.CommentRepository, tickets repository.TicketRepository, users repository.UserRepository, notifications repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		comments:      comments,
		tickets:       tickets,
		users:         users,
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// Create adds a comment and notifies the ticket creator and assignee when
// they are not the author.
func (s *CommentService) Create(ctx context.Context, ticketID, authorID int64, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body must not be blank", map[string]any{"field": "body", "rule": "required"})
	}
	if utf8.RuneCountInString(body) > domain.MaxCommentLen {
		return nil, apperrors.NewValidationError("comment too long", map[string]any{"field": "body", "rule": "max_length", "max": domain.MaxCommentLen})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": authorID})
		}
		return nil, apperrors.NewStoreFailure(err)
	}

	comment := &domain.Comment{
		TicketID: ticketID,
		UserID:   authorID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	if ticket.CreatedByID != authorID {
		s.notify(ctx, domain.Notification{
			UserID:   ticket.CreatedByID,
			Message:  fmt.Sprintf("New comment on your ticket: %s", ticket.Subject),
			Type:     domain.NotificationInfo,
			TicketID: &ticket.ID,
		})
	}
	if ticket.AssignedToID != nil && *ticket.AssignedToID != authorID {
		s.notify(ctx, domain.Notification{
			UserID:   *ticket.AssignedToID,
			Message:  fmt.Sprintf("New comment on ticket #%d", ticket.ID),
			Type:     domain.NotificationInfo,
			TicketID: &ticket.ID,
		})
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketCommentAdded,
			TicketID:  ticket.ID,
			ActorID:   authorID,
			Timestamp: time.Now(),
			Payload: events.TicketCommentAddedPayload{
				CommentID:   comment.ID,
				BodyPreview: bodyPreview(comment.Body, 120),
			},
		})
	}
	return comment, nil
}

// ListByTicket returns a ticket's comments in creation order.
func (s *CommentService) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return comments, nil
}

// Delete removes a comment.
func (s *CommentService) Delete(ctx context.Context, id int64) error {
	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"comment_id": id})
		}
		return apperrors.NewStoreFailure(err)
	}
	return nil
}

func (s *CommentService) notify(ctx context.Context, notification domain.Notification) {
	if err := s.notifications.Put(ctx, &notification); err != nil {
		s.logger.Warn("comment notification failed",
			zap.Int64("user_id", notification.UserID),
			zap.Error(err))
	}
}

func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
