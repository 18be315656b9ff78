package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const statsCacheKey = "helpdesk:ticket:stats"

// TicketQueryService serves the read side: filtered listings, detail views,
// history and the cached stats aggregate. No business logic lives here.
type TicketQueryService struct {
	tickets    repository.TicketRepository
	history    repository.HistoryRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.HistoryRepository
	CommentRepo  repository.CommentRepository
	UserRepo     repository.UserRepository
	CategoryRepo repository.CategoryRepository
	Cache        *redis.Client
	CacheTTL     time.Duration
	Logger       *zap.Logger
}

// NewTicketQueryService constructs the service.
func NewTicketQueryService(deps QueryDependencies) *TicketQueryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketQueryService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		categories: deps.CategoryRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		logger:     logger,
	}
}

// TicketDetails is a ticket with its resolved references, audit trail and
// comments.
type TicketDetails struct {
	Ticket     domain.Ticket
	CreatedBy  *domain.UserRef
	AssignedTo *domain.UserRef
	Category   *domain.CategoryRef
	History    []domain.HistoryEntry
	Comments   []domain.Comment
}

// List returns tickets matching the filter, newest first.
func (s *TicketQueryService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return tickets, nil
}

// Get returns one ticket with resolved references, history and comments.
func (s *TicketQueryService) Get(ctx context.Context, ticketID int64) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStoreFailure(err)
	}

	details := &TicketDetails{Ticket: *ticket}
	if details.CreatedBy, err = s.lookupUser(ctx, ticket.CreatedByID); err != nil {
		return nil, err
	}
	if ticket.AssignedToID != nil {
		if details.AssignedTo, err = s.lookupUser(ctx, *ticket.AssignedToID); err != nil {
			return nil, err
		}
	}
	if ticket.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *ticket.CategoryID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewStoreFailure(err)
		}
		details.Category = category
	}
	if details.History, err = s.History(ctx, ticketID, 100, 0); err != nil {
		return nil, err
	}
	if details.Comments, err = s.comments.ListByTicket(ctx, ticketID); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return details, nil
}

// Recent returns the five most recently created tickets.
func (s *TicketQueryService) Recent(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListRecent(ctx, 5)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return tickets, nil
}

// History lists a ticket's audit trail, most recent first.
func (s *TicketQueryService) History(ctx context.Context, ticketID int64, limit, offset int) ([]domain.HistoryEntry, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return entries, nil
}

// TicketsForUser lists tickets created by the given user.
func (s *TicketQueryService) TicketsForUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.List(ctx, repository.TicketFilter{CreatedByID: &userID, Limit: 100})
}

// TicketsAssignedToUser lists tickets assigned to the given user.
func (s *TicketQueryService) TicketsAssignedToUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.List(ctx, repository.TicketFilter{AssignedToID: &userID, Limit: 100})
}

// Stats returns counts by status and priority plus the average resolution
// time. The aggregate is cached in redis for a short TTL and invalidated on
// every ticket mutation event.
func (s *TicketQueryService) Stats(ctx context.Context) (*domain.TicketStats, error) {
	if cached := s.cachedStats(ctx); cached != nil {
		return cached, nil
	}

	row, err := s.tickets.Stats(ctx)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	stats := &domain.TicketStats{
		Total:             row.Total,
		Open:              row.Open,
		InProgress:        row.InProgress,
		Resolved:          row.Resolved,
		Closed:            row.Closed,
		HighPriority:      row.HighPriority,
		MediumPriority:    row.MediumPriority,
		LowPriority:       row.LowPriority,
		AvgResolutionTime: formatResolutionTime(row.AvgResolutionSeconds),
	}
	s.storeStats(ctx, stats)
	return stats, nil
}

// RegisterCacheInvalidation subscribes the stats cache to mutation events.
func (s *TicketQueryService) RegisterCacheInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		s.invalidateStats(ctx)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, invalidate)
	dispatcher.Subscribe(events.EventTicketStatusChanged, invalidate)
	dispatcher.Subscribe(events.EventTicketPriorityChanged, invalidate)
}

func (s *TicketQueryService) cachedStats(ctx context.Context) *domain.TicketStats {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return nil
	}
	var stats domain.TicketStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		s.logger.Warn("stats cache decode failed", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *TicketQueryService) storeStats(ctx context.Context, stats *domain.TicketStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
}

func (s *TicketQueryService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *TicketQueryService) lookupUser(ctx context.Context, id int64) (*domain.UserRef, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

func (s *TicketQueryService) requireUser(ctx context.Context, id int64) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return apperrors.NewStoreFailure(err)
	}
	return nil
}

func formatResolutionTime(seconds *float64) string {
	if seconds == nil {
		return "N/A"
	}
	d := time.Duration(*seconds * float64(time.Second))
	return d.Round(time.Minute).String()
}
