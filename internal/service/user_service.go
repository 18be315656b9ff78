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

// UserService is provisioning pass-through for the identity-provider
// account mirror. Credentials never touch this service.
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.UserRef, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

// List returns all mirrored accounts.
func (s *UserService) List(ctx context.Context) ([]domain.UserRef, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return users, nil
}

// Provision mirrors a new identity-provider account.
func (s *UserService) Provision(ctx context.Context, username, email, fullName string) (*domain.UserRef, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewValidationError("username must not be blank", map[string]any{"field": "username", "rule": "required"})
	}
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, apperrors.NewConflict("username already exists", map[string]any{"username": username})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStoreFailure(err)
	}
	user := &domain.UserRef{
		Username: username,
		Email:    strings.TrimSpace(email),
		FullName: strings.TrimSpace(fullName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

// Update refreshes a mirrored account.
func (s *UserService) Update(ctx context.Context, id int64, email, fullName string) (*domain.UserRef, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Email = strings.TrimSpace(email)
	user.FullName = strings.TrimSpace(fullName)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return user, nil
}

// Delete removes a mirrored account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return apperrors.NewStoreFailure(err)
	}
	return nil
}
