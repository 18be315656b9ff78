package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func baseView() TicketView {
	return TicketView{
		Subject:     "Printer is on fire",
		Description: "Third floor printer, again",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
	}
}

func TestDetectChangesNoOp(t *testing.T) {
	view := baseView()
	assert.Nil(t, DetectChanges(view, view, false))
	assert.Nil(t, DetectChanges(view, view, true))
}

func TestDetectChangesFixedOrder(t *testing.T) {
	prev := baseView()
	next := prev
	next.Status = domain.TicketStatusInProgress
	next.Priority = domain.TicketPriorityHigh
	next.AssignedToID = int64Ptr(7)
	next.AssignedLabel = "agent.smith"
	next.CategoryID = int64Ptr(3)
	next.CategoryLabel = "Hardware"
	next.Subject = "Printer was on fire"
	next.Description = "Handled"

	deltas := DetectChanges(prev, next, true)
	require.Len(t, deltas, 6)
	assert.Equal(t, "status", deltas[0].Field)
	assert.Equal(t, "priority", deltas[1].Field)
	assert.Equal(t, "assignedTo", deltas[2].Field)
	assert.Equal(t, "category", deltas[3].Field)
	assert.Equal(t, "subject", deltas[4].Field)
	assert.Equal(t, "description", deltas[5].Field)

	assert.Equal(t, domain.ActionStatusChanged, deltas[0].Action)
	assert.Equal(t, domain.ActionPriorityChanged, deltas[1].Action)
	assert.Equal(t, domain.ActionAssignmentChanged, deltas[2].Action)
	assert.Equal(t, domain.ActionCategoryChanged, deltas[3].Action)
	assert.Equal(t, domain.ActionFieldChanged, deltas[4].Action)
	assert.Equal(t, domain.ActionFieldChanged, deltas[5].Action)
}

func TestDetectChangesContentExcludedByDefault(t *testing.T) {
	prev := baseView()
	next := prev
	next.Subject = "Different subject"
	next.Description = "Different description"

	assert.Nil(t, DetectChanges(prev, next, false))

	deltas := DetectChanges(prev, next, true)
	require.Len(t, deltas, 2)
	assert.Equal(t, "Printer is on fire", deltas[0].OldValue)
	assert.Equal(t, "Different subject", deltas[0].NewValue)
}

func TestDetectChangesAssignmentLabels(t *testing.T) {
	prev := baseView()
	next := prev
	next.AssignedToID = int64Ptr(4)
	next.AssignedLabel = "agent.jones"

	deltas := DetectChanges(prev, next, false)
	require.Len(t, deltas, 1)
	assert.Equal(t, LabelUnassigned, deltas[0].OldValue)
	assert.Equal(t, "agent.jones", deltas[0].NewValue)

	// unassign goes back to the placeholder
	deltas = DetectChanges(next, prev, false)
	require.Len(t, deltas, 1)
	assert.Equal(t, "agent.jones", deltas[0].OldValue)
	assert.Equal(t, LabelUnassigned, deltas[0].NewValue)
}

func TestDetectChangesComparesReferencesByID(t *testing.T) {
	prev := baseView()
	prev.AssignedToID = int64Ptr(4)
	prev.AssignedLabel = "old.name"
	next := prev
	next.AssignedLabel = "renamed.user"

	// same id, different label: not a change
	assert.Nil(t, DetectChanges(prev, next, false))
}

func TestDetectChangesCategoryFallbackLabel(t *testing.T) {
	prev := baseView()
	prev.CategoryID = int64Ptr(9)
	prev.CategoryLabel = "Network"
	next := baseView()

	deltas := DetectChanges(prev, next, false)
	require.Len(t, deltas, 1)
	assert.Equal(t, "category", deltas[0].Field)
	assert.Equal(t, "Network", deltas[0].OldValue)
	assert.Equal(t, LabelUncategorized, deltas[0].NewValue)
}
