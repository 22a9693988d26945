package engine

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// validateTask checks the field-level invariants of a task.
// Returns the first violation found.
func validateTask(t *ir.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return newValidationError("title", "title is required")
	}
	if t.OrganizationID == "" {
		return newValidationError("organization_id", "organization is required")
	}
	if !t.Status.Valid() {
		return newValidationError("status", "unknown status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return newValidationError("priority", "unknown priority %q", t.Priority)
	}
	if !t.Visibility.Valid() {
		return newValidationError("visibility", "unknown visibility %q", t.Visibility)
	}
	if t.StartDate != nil && t.DueDate != nil && t.DueDate.Before(*t.StartDate) {
		return newValidationError("due_date", "due date %s is before start date %s", t.DueDate, t.StartDate)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"estimated_hours", t.EstimatedHours},
		{"budget_hours", t.BudgetHours},
		{"time_spent", t.TimeSpent},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return newValidationError(f.name, "%s must be a non-negative number", f.name)
		}
	}
	if t.IsBillable && !t.TimeTrackingEnabled {
		return newValidationError("is_billable", "billable tasks require time tracking")
	}
	if t.IsRecurring {
		if !t.RecurringFrequency.Valid() {
			return newValidationError("recurring_frequency", "recurring tasks need a frequency (daily, weekly, biweekly, monthly, quarterly)")
		}
		if t.RecurringEndsOn == nil || t.RecurringEndsOn.IsZero() {
			return newValidationError("recurring_ends_on", "recurring tasks need an end date")
		}
	} else if t.RecurringFrequency != "" && !t.RecurringFrequency.Valid() {
		return newValidationError("recurring_frequency", "unknown frequency %q", t.RecurringFrequency)
	}
	return nil
}

// validateReferences checks that the project and every referenced member
// belong to the task's organization.
func validateReferences(ctx context.Context, tx *store.Tx, t *ir.Task) error {
	if t.ProjectID != "" {
		p, err := tx.GetProject(ctx, t.ProjectID)
		if err != nil || p.OrganizationID != t.OrganizationID {
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return &Error{
				Code:    CodeNotFound,
				Message: "project " + t.ProjectID + " not found",
				Field:   "project_id",
			}
		}
	}
	refs := []struct {
		field string
		ids   []string
	}{
		{"assigned_to", []string{t.AssignedTo}},
		{"assignees", t.Assignees},
		{"approvers", t.Approvers},
		{"watchers", t.Watchers},
	}
	for _, ref := range refs {
		for _, id := range ref.ids {
			if id == "" {
				continue
			}
			if err := requireMember(ctx, tx, t.OrganizationID, ref.field, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// requireMember fails with CodeUnknownMember unless memberID exists in orgID.
func requireMember(ctx context.Context, tx *store.Tx, orgID, field, memberID string) error {
	m, err := tx.GetMember(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return newUnknownMemberError(field, memberID)
	}
	if err != nil {
		return err
	}
	if m.OrganizationID != orgID {
		return newUnknownMemberError(field, memberID)
	}
	return nil
}

// normalizeTask applies defaults and canonical set ordering before a write.
func normalizeTask(t *ir.Task) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == "" {
		t.Priority = ir.PriorityMedium
	}
	if t.Visibility == "" {
		t.Visibility = ir.VisibilityTeam
	}
	if t.StartDate != nil && t.StartDate.IsZero() {
		t.StartDate = nil
	}
	if t.DueDate != nil && t.DueDate.IsZero() {
		t.DueDate = nil
	}
	if t.RecurringEndsOn != nil && t.RecurringEndsOn.IsZero() {
		t.RecurringEndsOn = nil
	}
	t.Assignees = ir.NormalizeSet(t.Assignees)
	t.Approvers = ir.NormalizeSet(t.Approvers)
	t.Watchers = ir.NormalizeSet(t.Watchers)
	t.Tags = ir.NormalizeSet(t.Tags)
}
