package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestParseTicketPatchAbsentFieldsUntouched(t *testing.T) {
	patch, err := parseTicketPatch([]byte(`{"status":"RESOLVED"}`))
	require.NoError(t, err)

	require.NotNil(t, patch.Status)
	assert.Equal(t, domain.TicketStatusResolved, *patch.Status)
	assert.Nil(t, patch.Subject)
	assert.Nil(t, patch.Priority)
	assert.Nil(t, patch.Category)
	assert.Nil(t, patch.AssignedTo)
	assert.Nil(t, patch.DueDate)
}

func TestParseTicketPatchNullClears(t *testing.T) {
	patch, err := parseTicketPatch([]byte(`{"assigned_to_id":null,"category_id":null,"due_date":null}`))
	require.NoError(t, err)

	require.NotNil(t, patch.AssignedTo)
	assert.False(t, patch.AssignedTo.Valid)
	require.NotNil(t, patch.Category)
	assert.False(t, patch.Category.Valid)
	require.NotNil(t, patch.DueDate)
	assert.False(t, patch.DueDate.Valid)
}

func TestParseTicketPatchSetsReferences(t *testing.T) {
	patch, err := parseTicketPatch([]byte(`{"assigned_to_id":7,"category_id":3}`))
	require.NoError(t, err)

	require.NotNil(t, patch.AssignedTo)
	assert.True(t, patch.AssignedTo.Valid)
	assert.Equal(t, int64(7), patch.AssignedTo.Int64)
	require.NotNil(t, patch.Category)
	assert.True(t, patch.Category.Valid)
	assert.Equal(t, int64(3), patch.Category.Int64)
}

func TestParseTicketPatchRejectsNullScalars(t *testing.T) {
	_, err := parseTicketPatch([]byte(`{"subject":null}`))
	assert.Error(t, err)

	_, err = parseTicketPatch([]byte(`{"status":null}`))
	assert.Error(t, err)

	_, err = parseTicketPatch([]byte(`{"assigned_to_id":"bob"}`))
	assert.Error(t, err)

	_, err = parseTicketPatch([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseTicketPatchIgnoresUnknownKeys(t *testing.T) {
	patch, err := parseTicketPatch([]byte(`{"created_by_id":99,"priority":"HIGH"}`))
	require.NoError(t, err)

	require.NotNil(t, patch.Priority)
	assert.Equal(t, domain.TicketPriorityHigh, *patch.Priority)
}
