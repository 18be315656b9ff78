package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationRepository stores the per-user notification feed.
type NotificationRepository interface {
	Put(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) db(ctx context.Context) DBTX {
	return querier(ctx, r.pool)
}

func (r *notificationRepository) Put(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, message, type, ticket_id, read)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db(ctx).QueryRow(ctx, query,
		notification.UserID,
		notification.Message,
		notification.Type,
		notification.TicketID,
		notification.Read,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, message, type, ticket_id, read, created_at
        FROM notifications WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *notificationRepository) ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, message, type, ticket_id, read, created_at
        FROM notifications WHERE user_id=$1 AND read=FALSE ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *notificationRepository) list(ctx context.Context, query string, userID int64) ([]domain.Notification, error) {
	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Message,
			&n.Type,
			&n.TicketID,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	cmd, err := r.db(ctx).Exec(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db(ctx).Exec(ctx, `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND read=FALSE`, userID)
	return err
}
