package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CategoryRepository stores ticket categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.CategoryRef, error)
	List(ctx context.Context) ([]domain.CategoryRef, error)
	Create(ctx context.Context, category *domain.CategoryRef) error
	Update(ctx context.Context, category *domain.CategoryRef) error
	Delete(ctx context.Context, id int64) error
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) db(ctx context.Context) DBTX {
	return querier(ctx, r.pool)
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.CategoryRef, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at
        FROM categories WHERE id=$1`
	var category domain.CategoryRef
	if err := r.db(ctx).QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.CategoryRef, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at
        FROM categories ORDER BY name ASC`
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CategoryRef
	for rows.Next() {
		var category domain.CategoryRef
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.CategoryRef) error {
	const query = `
        INSERT INTO categories (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		category.Name,
		category.Description,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.CategoryRef) error {
	const query = `
        UPDATE categories SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.ID,
	).Scan(&category.UpdatedAt)
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
