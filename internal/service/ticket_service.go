package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TxRunner executes fn as one atomic unit of work. Repository calls made
// inside fn share the same transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketService is the mutation engine: it applies a change to a ticket,
// detects which tracked fields changed, records one history entry per change
// and emits notifications. Ticket state and history commit atomically;
// notifications are delivered after commit and are best-effort.
type TicketService struct {
	txs           TxRunner
	tickets       repository.TicketRepository
	history       repository.HistoryRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	categories    repository.CategoryRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	auditContent  bool
}

// TicketDependencies bundles collaborators for the mutation engine.
type TicketDependencies struct {
	TxRunner         TxRunner
	TicketRepo       repository.TicketRepository
	HistoryRepo      repository.HistoryRepository
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	CategoryRepo     repository.CategoryRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	// AuditContentEdits opts subject/description edits into the audit trail
	// as FIELD_CHANGED entries. Off by default.
	AuditContentEdits bool
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		txs:           deps.TxRunner,
		tickets:       deps.TicketRepo,
		history:       deps.HistoryRepo,
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		categories:    deps.CategoryRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		auditContent:  deps.AuditContentEdits,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Subject      string
	Description  string
	Status       domain.TicketStatus   // defaults to OPEN
	Priority     domain.TicketPriority // defaults to MEDIUM
	CategoryID   *int64
	AssignedToID *int64
	DueDate      *time.Time
}

// TicketPatch carries an update. Pointer fields that are nil are left
// untouched. Category and AssignedTo are tri-state: nil keeps the current
// value, an invalid null.Int clears it, a valid one sets it. Creator and
// timestamps are never patchable.
type TicketPatch struct {
	Subject     *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *null.Int
	AssignedTo  *null.Int
	Resolution  *string
	DueDate     *null.Time
}

// Create persists a new ticket, records the CREATED history entry and
// notifies the assignee when one is set.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput, actorID int64) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	if !domain.ValidTicketStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "value": string(status)})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": string(priority)})
	}

	var (
		created *domain.Ticket
		pending []domain.Notification
	)
	err := s.txs.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.resolveUser(ctx, actorID); err != nil {
			return err
		}
		if input.CategoryID != nil {
			if _, err := s.resolveCategory(ctx, *input.CategoryID); err != nil {
				return err
			}
		}
		var assignee *domain.UserRef
		if input.AssignedToID != nil {
			var err error
			assignee, err = s.resolveUser(ctx, *input.AssignedToID)
			if err != nil {
				return err
			}
		}

		ticket := &domain.Ticket{
			ExternalKey:  generateTicketKey(),
			Subject:      subject,
			Description:  description,
			Status:       status,
			Priority:     priority,
			CategoryID:   input.CategoryID,
			CreatedByID:  actorID,
			AssignedToID: input.AssignedToID,
			DueDate:      input.DueDate,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return apperrors.NewStoreFailure(err)
		}
		entry := &domain.HistoryEntry{
			TicketID: ticket.ID,
			UserID:   actorID,
			Action:   domain.ActionCreated,
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return apperrors.NewStoreFailure(err)
		}
		if assignee != nil {
			pending = append(pending, domain.Notification{
				UserID:   assignee.ID,
				Message:  fmt.Sprintf("New ticket assigned to you: %s", ticket.Subject),
				Type:     domain.NotificationInfo,
				TicketID: &ticket.ID,
			})
		}
		created = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, pending)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: created.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			Subject:      created.Subject,
			Status:       created.Status,
			Priority:     created.Priority,
			AssignedToID: created.AssignedToID,
		},
	})
	return created, nil
}

// Update applies a patch to an existing ticket. The row is locked for the
// duration of the transaction, so the diff always runs against the latest
// committed state. One history entry is appended per detected change;
// replaying an identical patch yields zero entries and zero notifications.
func (s *TicketService) Update(ctx context.Context, ticketID int64, patch TicketPatch, actorID int64) (*domain.Ticket, error) {
	var (
		updated  *domain.Ticket
		prevView TicketView
		deltas   []FieldDelta
		pending  []domain.Notification
	)
	err := s.txs.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.resolveUser(ctx, actorID); err != nil {
			return err
		}
		ticket, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.NewStoreFailure(err)
		}

		prevView, err = s.viewOf(ctx, ticket)
		if err != nil {
			return err
		}

		next := *ticket
		if err := s.applyPatch(ctx, &next, patch); err != nil {
			return err
		}
		if next.Status != ticket.Status {
			stampStatusTimes(&next)
		}

		nextView, err := s.viewOf(ctx, &next)
		if err != nil {
			return err
		}
		deltas = DetectChanges(prevView, nextView, s.auditContent)

		if err := s.tickets.Update(ctx, &next); err != nil {
			return apperrors.NewStoreFailure(err)
		}
		for _, delta := range deltas {
			entry := &domain.HistoryEntry{
				TicketID: next.ID,
				UserID:   actorID,
				Action:   delta.Action,
				Field:    delta.Field,
				OldValue: strPtr(delta.OldValue),
				NewValue: strPtr(delta.NewValue),
			}
			if err := s.history.Append(ctx, entry); err != nil {
				return apperrors.NewStoreFailure(err)
			}
		}

		if next.Status != ticket.Status && next.CreatedByID != actorID {
			pending = append(pending, domain.Notification{
				UserID:   next.CreatedByID,
				Message:  fmt.Sprintf("Ticket #%d status changed to %s", next.ID, next.Status),
				Type:     domain.NotificationInfo,
				TicketID: &next.ID,
			})
		}
		if !idEqual(ticket.AssignedToID, next.AssignedToID) && next.AssignedToID != nil {
			pending = append(pending, domain.Notification{
				UserID:   *next.AssignedToID,
				Message:  fmt.Sprintf("Ticket #%d has been assigned to you", next.ID),
				Type:     domain.NotificationInfo,
				TicketID: &next.ID,
			})
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, pending)
	s.publishDeltas(ctx, updated, prevView, deltas, actorID)
	return updated, nil
}

// Delete removes a ticket. History, notifications and comments referencing
// it cascade away with the row.
func (s *TicketService) Delete(ctx context.Context, ticketID int64) error {
	return s.txs.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.tickets.GetByIDForUpdate(ctx, ticketID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.NewStoreFailure(err)
		}
		if err := s.tickets.Delete(ctx, ticketID); err != nil {
			return apperrors.NewStoreFailure(err)
		}
		return nil
	})
}

// Assign is a convenience wrapper over Update that only moves the assignee.
// A nil assigneeID unassigns the ticket.
func (s *TicketService) Assign(ctx context.Context, ticketID int64, assigneeID *int64, actorID int64) (*domain.Ticket, error) {
	assigned := null.IntFromPtr(assigneeID)
	return s.Update(ctx, ticketID, TicketPatch{AssignedTo: &assigned}, actorID)
}

// ChangeStatus is a convenience wrapper over Update that only moves status.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID int64, status domain.TicketStatus, actorID int64) (*domain.Ticket, error) {
	return s.Update(ctx, ticketID, TicketPatch{Status: &status}, actorID)
}

func (s *TicketService) applyPatch(ctx context.Context, ticket *domain.Ticket, patch TicketPatch) error {
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		if err := validateSubject(subject); err != nil {
			return err
		}
		ticket.Subject = subject
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if err := validateDescription(description); err != nil {
			return err
		}
		ticket.Description = description
	}
	if patch.Status != nil {
		if !domain.ValidTicketStatus(*patch.Status) {
			return apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "value": string(*patch.Status)})
		}
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !domain.ValidTicketPriority(*patch.Priority) {
			return apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": string(*patch.Priority)})
		}
		ticket.Priority = *patch.Priority
	}
	if patch.Category != nil {
		if patch.Category.Valid {
			id := patch.Category.Int64
			if _, err := s.resolveCategory(ctx, id); err != nil {
				return err
			}
			ticket.CategoryID = &id
		} else {
			ticket.CategoryID = nil
		}
	}
	if patch.AssignedTo != nil {
		if patch.AssignedTo.Valid {
			id := patch.AssignedTo.Int64
			if _, err := s.resolveUser(ctx, id); err != nil {
				return err
			}
			ticket.AssignedToID = &id
		} else {
			ticket.AssignedToID = nil
		}
	}
	if patch.Resolution != nil {
		resolution := strings.TrimSpace(*patch.Resolution)
		if resolution == "" {
			ticket.Resolution = nil
		} else {
			ticket.Resolution = &resolution
		}
	}
	if patch.DueDate != nil {
		if patch.DueDate.Valid {
			due := patch.DueDate.Time
			ticket.DueDate = &due
		} else {
			ticket.DueDate = nil
		}
	}
	return nil
}

// stampStatusTimes maintains resolvedAt/closedAt as status moves. Reopening
// a resolved or closed ticket clears both.
func stampStatusTimes(ticket *domain.Ticket) {
	now := time.Now()
	switch ticket.Status {
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
		ticket.ClosedAt = nil
	case domain.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			ticket.ClosedAt = &now
		}
	default:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}
}

// viewOf resolves the display labels the audit trail stores. A dangling old
// reference must not fail the mutation, so unresolvable ids degrade to a
// positional label.
func (s *TicketService) viewOf(ctx context.Context, ticket *domain.Ticket) (TicketView, error) {
	view := TicketView{
		Subject:      ticket.Subject,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		AssignedToID: ticket.AssignedToID,
		CategoryID:   ticket.CategoryID,
	}
	if ticket.AssignedToID != nil {
		user, err := s.users.GetByID(ctx, *ticket.AssignedToID)
		switch {
		case err == nil:
			view.AssignedLabel = user.Username
		case errors.Is(err, pgx.ErrNoRows):
			view.AssignedLabel = fmt.Sprintf("User #%d", *ticket.AssignedToID)
		default:
			return TicketView{}, apperrors.NewStoreFailure(err)
		}
	}
	if ticket.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *ticket.CategoryID)
		switch {
		case err == nil:
			view.CategoryLabel = category.Name
		case errors.Is(err, pgx.ErrNoRows):
			view.CategoryLabel = fmt.Sprintf("Category #%d", *ticket.CategoryID)
		default:
			return TicketView{}, apperrors.NewStoreFailure(err)
		}
	}
	return view, nil
}

func (s *TicketService) resolveUser(ctx context.Context, id int64) (*domain.UserRef, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

func (s *TicketService) resolveCategory(ctx context.Context, id int64) (*domain.CategoryRef, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return category, nil
}

// deliver persists notifications after the mutation committed. Failures are
// logged and swallowed: they must never fail the encompassing mutation.
func (s *TicketService) deliver(ctx context.Context, pending []domain.Notification) {
	for i := range pending {
		if err := s.notifications.Put(ctx, &pending[i]); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.Int64("user_id", pending[i].UserID),
				zap.Error(err))
		}
	}
}

func (s *TicketService) publishDeltas(ctx context.Context, ticket *domain.Ticket, prev TicketView, deltas []FieldDelta, actorID int64) {
	for _, delta := range deltas {
		event := events.Event{TicketID: ticket.ID, ActorID: actorID}
		switch delta.Action {
		case domain.ActionStatusChanged:
			event.Type = events.EventTicketStatusChanged
			event.Payload = events.TicketStatusChangedPayload{
				OldStatus: prev.Status,
				NewStatus: ticket.Status,
			}
		case domain.ActionPriorityChanged:
			event.Type = events.EventTicketPriorityChanged
			event.Payload = events.TicketPriorityChangedPayload{
				OldPriority: prev.Priority,
				NewPriority: ticket.Priority,
			}
		case domain.ActionAssignmentChanged:
			event.Type = events.EventTicketAssigned
			event.Payload = events.TicketAssignedPayload{
				OldAssignedToID: prev.AssignedToID,
				NewAssignedToID: ticket.AssignedToID,
			}
		case domain.ActionCategoryChanged:
			event.Type = events.EventTicketCategorized
			event.Payload = events.TicketCategorizedPayload{
				OldCategoryID: prev.CategoryID,
				NewCategoryID: ticket.CategoryID,
			}
		default:
			continue
		}
		s.publish(ctx, event)
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateSubject(subject string) error {
	if subject == "" {
		return apperrors.NewValidationError("subject must not be blank", map[string]any{"field": "subject", "rule": "required"})
	}
	if utf8.RuneCountInString(subject) > domain.MaxSubjectLen {
		return apperrors.NewValidationError("subject too long", map[string]any{"field": "subject", "rule": "max_length", "max": domain.MaxSubjectLen})
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" {
		return apperrors.NewValidationError("description must not be blank", map[string]any{"field": "description", "rule": "required"})
	}
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLen {
		return apperrors.NewValidationError("description too long", map[string]any{"field": "description", "rule": "max_length", "max": domain.MaxDescriptionLen})
	}
	return nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func strPtr(s string) *string {
	return &s
}
