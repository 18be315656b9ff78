package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedByID  *int64
	AssignedToID *int64
	CategoryID   *int64
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row for the lifetime of the surrounding
	// transaction so concurrent mutations of the same ticket serialize.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error)
	Stats(ctx context.Context) (*TicketStatsRow, error)
}

// TicketStatsRow carries raw aggregates; formatting happens in the service.
type TicketStatsRow struct {
	Total                int64
	Open                 int64
	InProgress           int64
	Resolved             int64
	Closed               int64
	HighPriority         int64
	MediumPriority       int64
	LowPriority          int64
	AvgResolutionSeconds *float64
}

const ticketColumns = `id, external_key, subject, description, status, priority, category_id,
               created_by_id, assigned_to_id, resolution, due_date, resolved_at, closed_at,
               created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) db(ctx context.Context) DBTX {
	return querier(ctx, r.pool)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, subject, description, status, priority, category_id,
            created_by_id, assigned_to_id, resolution, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.CreatedByID,
		ticket.AssignedToID,
		ticket.Resolution,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, status=$3, priority=$4, category_id=$5,
            assigned_to_id=$6, resolution=$7, due_date=$8, resolved_at=$9, closed_at=$10,
            updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`
	err := r.db(ctx).QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.AssignedToID,
		ticket.Resolution,
		ticket.DueDate,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db(ctx).QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.Resolution,
		&ticket.DueDate,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedByID != nil {
		args = append(args, *filter.CreatedByID)
		clauses = append(clauses, fmt.Sprintf("created_by_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY created_at DESC, id DESC LIMIT %d`, ticketColumns, limit)
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context) (*TicketStatsRow, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='OPEN'),
               COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
               COUNT(*) FILTER (WHERE status='RESOLVED'),
               COUNT(*) FILTER (WHERE status='CLOSED'),
               COUNT(*) FILTER (WHERE priority='HIGH'),
               COUNT(*) FILTER (WHERE priority='MEDIUM'),
               COUNT(*) FILTER (WHERE priority='LOW'),
               AVG(EXTRACT(EPOCH FROM resolved_at - created_at)) FILTER (WHERE resolved_at IS NOT NULL)
        FROM tickets`
	var stats TicketStatsRow
	if err := r.db(ctx).QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Open,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
		&stats.HighPriority,
		&stats.MediumPriority,
		&stats.LowPriority,
		&stats.AvgResolutionSeconds,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CategoryID,
			&ticket.CreatedByID,
			&ticket.AssignedToID,
			&ticket.Resolution,
			&ticket.DueDate,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
