package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewConflict("dupe", nil), "CONFLICT", http.StatusConflict},
		{NewIllegalState("cannot", nil), "ILLEGAL_STATE", http.StatusConflict},
		{NewStoreFailure(errors.New("db down")), "STORE_FAILURE", http.StatusInternalServerError},
		{NewInternalError(nil), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		var domainErr *DomainError
		require.ErrorAs(t, tc.err, &domainErr)
		assert.Equal(t, tc.code, domainErr.Code)
		assert.Equal(t, tc.status, domainErr.HTTPStatus)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	require.NotNil(t, mapped)
	assert.Equal(t, "NOT_FOUND", mapped.Code)

	wrapped := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	assert.Equal(t, "NOT_FOUND", wrapped.Code)
}

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewConflict("already exists", map[string]any{"username": "alice"})
	mapped := ToDomainError(original)
	assert.Equal(t, "CONFLICT", mapped.Code)
	assert.Equal(t, "alice", mapped.Details["username"])
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("socket reset")
	mapped := ToDomainError(cause)
	assert.Equal(t, "STORE_FAILURE", mapped.Code)
	assert.ErrorIs(t, mapped, cause)
}

func TestStoreFailureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreFailure(cause)
	assert.ErrorIs(t, err, cause)
}
