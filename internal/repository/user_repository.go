package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository mirrors identity-provider accounts for reference lookups
// and provisioning pass-through. No credential data is stored.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.UserRef, error)
	GetByUsername(ctx context.Context, username string) (*domain.UserRef, error)
	List(ctx context.Context) ([]domain.UserRef, error)
	Create(ctx context.Context, user *domain.UserRef) error
	Update(ctx context.Context, user *domain.UserRef) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) db(ctx context.Context) DBTX {
	return querier(ctx, r.pool)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.UserRef, error) {
	const query = `
        SELECT id, username, email, full_name, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.UserRef, error) {
	const query = `
        SELECT id, username, email, full_name, created_at, updated_at
        FROM users WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.UserRef, error) {
	var user domain.UserRef
	if err := r.db(ctx).QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.UserRef, error) {
	const query = `
        SELECT id, username, email, full_name, created_at, updated_at
        FROM users ORDER BY username ASC`
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserRef
	for rows.Next() {
		var user domain.UserRef
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.FullName,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) Create(ctx context.Context, user *domain.UserRef) error {
	const query = `
        INSERT INTO users (username, email, full_name)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.UserRef) error {
	const query = `
        UPDATE users SET username=$1, email=$2, full_name=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.ID,
	).Scan(&user.UpdatedAt)
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
