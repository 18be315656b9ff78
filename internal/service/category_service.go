package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// CategoryService is pass-through persistence for categories.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService creates the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.CategoryRef, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return category, nil
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.CategoryRef, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return categories, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.CategoryRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name must not be blank", map[string]any{"field": "name", "rule": "required"})
	}
	category := &domain.CategoryRef{Name: name, Description: strings.TrimSpace(description)}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return category, nil
}

// Update modifies a category.
func (s *CategoryService) Update(ctx context.Context, id int64, name, description string) (*domain.CategoryRef, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name must not be blank", map[string]any{"field": "name", "rule": "required"})
	}
	category.Name = name
	category.Description = strings.TrimSpace(description)
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return category, nil
}

// Delete removes a category. Tickets referencing it fall back to
// uncategorized via the schema's ON DELETE SET NULL.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return apperrors.NewStoreFailure(err)
	}
	return nil
}
