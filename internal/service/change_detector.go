package service

import (
	"github.com/spec-kit/helpdesk/internal/domain"
)

// Display labels for absent references in stored history values.
const (
	LabelUnassigned    = "Unassigned"
	LabelUncategorized = "Uncategorized"
)

// TicketView is the slice of ticket state the change detector compares.
// Reference fields carry both the id (what equality is decided on) and a
// pre-resolved display label (what gets stored in history), so the detector
// itself never performs lookups.
type TicketView struct {
	Subject       string
	Description   string
	Status        domain.TicketStatus
	Priority      domain.TicketPriority
	AssignedToID  *int64
	AssignedLabel string
	CategoryID    *int64
	CategoryLabel string
}

// FieldDelta is a single detected difference between two field values.
type FieldDelta struct {
	Field    string
	Action   domain.HistoryAction
	OldValue string
	NewValue string
}

// DetectChanges compares two ticket views and returns the deltas in fixed
// order: status, priority, assignedTo, category, then (only when
// includeContent is set) subject and description as FIELD_CHANGED. Reference
// fields compare by id, never by label. A no-op comparison yields nil.
func DetectChanges(prev, next TicketView, includeContent bool) []FieldDelta {
	var deltas []FieldDelta

	if prev.Status != next.Status {
		deltas = append(deltas, FieldDelta{
			Field:    "status",
			Action:   domain.ActionStatusChanged,
			OldValue: string(prev.Status),
			NewValue: string(next.Status),
		})
	}
	if prev.Priority != next.Priority {
		deltas = append(deltas, FieldDelta{
			Field:    "priority",
			Action:   domain.ActionPriorityChanged,
			OldValue: string(prev.Priority),
			NewValue: string(next.Priority),
		})
	}
	if !idEqual(prev.AssignedToID, next.AssignedToID) {
		deltas = append(deltas, FieldDelta{
			Field:    "assignedTo",
			Action:   domain.ActionAssignmentChanged,
			OldValue: labelOr(prev.AssignedLabel, LabelUnassigned),
			NewValue: labelOr(next.AssignedLabel, LabelUnassigned),
		})
	}
	if !idEqual(prev.CategoryID, next.CategoryID) {
		deltas = append(deltas, FieldDelta{
			Field:    "category",
			Action:   domain.ActionCategoryChanged,
			OldValue: labelOr(prev.CategoryLabel, LabelUncategorized),
			NewValue: labelOr(next.CategoryLabel, LabelUncategorized),
		})
	}
	if includeContent {
		if prev.Subject != next.Subject {
			deltas = append(deltas, FieldDelta{
				Field:    "subject",
				Action:   domain.ActionFieldChanged,
				OldValue: prev.Subject,
				NewValue: next.Subject,
			})
		}
		if prev.Description != next.Description {
			deltas = append(deltas, FieldDelta{
				Field:    "description",
				Action:   domain.ActionFieldChanged,
				OldValue: prev.Description,
				NewValue: next.Description,
			})
		}
	}
	return deltas
}

func idEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
