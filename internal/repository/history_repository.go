package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// HistoryRepository stores audit entries. Append only: entries are never
// updated and only disappear together with their ticket.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	// ListByTicket returns entries most-recent-first for display. The engine
	// itself appends in creation order; ties resolve by insertion order.
	ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) db(ctx context.Context) DBTX {
	return querier(ctx, r.pool)
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, user_id, action, field, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db(ctx).QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.Action,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID int64, limit, offset int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, user_id, action, field, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.db(ctx).Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.Action,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
