package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// CreateTask creates a pending task from draft and appends one created entry.
//
// Server-owned fields of draft (id, status, timestamps, time spent, delegation,
// rejection, approval, version) are ignored. draft.Prerequisites and
// draft.Linked, when set, are inserted as edges in the same transaction.
func (e *Engine) CreateTask(ctx context.Context, actor ir.Actor, draft ir.Task) (*ir.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	now := e.Now()
	t := newTaskFromDraft(draft)
	t.ID = e.ids.Generate()
	t.OrganizationID = actor.OrganizationID
	t.CreatedBy = actor.MemberID
	t.CreatedAt = now
	t.UpdatedAt = now
	normalizeTask(t)
	if err := validateTask(t); err != nil {
		return nil, err
	}

	prereqs := ir.NormalizeSet(draft.Prerequisites)
	linked := ir.NormalizeSet(draft.Linked)

	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := validateReferences(ctx, tx, t); err != nil {
			return err
		}
		if err := tx.InsertTask(ctx, t); err != nil {
			return err
		}
		// A new task has no dependents, so inline prerequisites cannot close a cycle.
		for _, id := range prereqs {
			if _, err := loadTask(ctx, tx, actor, id); err != nil {
				return err
			}
			if _, err := tx.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: id, To: t.ID}, now); err != nil {
				return err
			}
		}
		for _, id := range linked {
			if _, err := loadTask(ctx, tx, actor, id); err != nil {
				return err
			}
			if _, err := tx.InsertEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: t.ID, To: id}, now); err != nil {
				return err
			}
		}
		return e.record(ctx, tx, t.ID, actor.MemberID, ir.ActionCreated,
			fmt.Sprintf("created task %q", t.Title), now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("task created", "task", t.ID, "org", t.OrganizationID)
	return loadTask(ctx, e.store, actor, t.ID)
}

// newTaskFromDraft copies the caller-settable fields of draft.
func newTaskFromDraft(d ir.Task) *ir.Task {
	return &ir.Task{
		ProjectID:           d.ProjectID,
		Title:               d.Title,
		Description:         d.Description,
		Status:              ir.StatusPending,
		Priority:            d.Priority,
		Category:            d.Category,
		Visibility:          d.Visibility,
		StartDate:           d.StartDate,
		DueDate:             d.DueDate,
		EstimatedHours:      d.EstimatedHours,
		BudgetHours:         d.BudgetHours,
		TimeTrackingEnabled: d.TimeTrackingEnabled,
		IsBillable:          d.IsBillable,
		ClientReference:     d.ClientReference,
		IsRecurring:         d.IsRecurring,
		RecurringFrequency:  d.RecurringFrequency,
		RecurringEndsOn:     d.RecurringEndsOn,
		AssignedTo:          d.AssignedTo,
		Assignees:           slices.Clone(d.Assignees),
		Approvers:           slices.Clone(d.Approvers),
		Watchers:            slices.Clone(d.Watchers),
		AcceptanceCriteria:  d.AcceptanceCriteria,
		Notes:               d.Notes,
		Tags:                slices.Clone(d.Tags),
		Version:             1,
	}
}

// GetTask returns a task visible to actor.
func (e *Engine) GetTask(ctx context.Context, actor ir.Actor, id string) (*ir.Task, error) {
	return loadTask(ctx, e.store, actor, id)
}

// TaskPatch is a partial update. Nil fields are left unchanged. A zero Date
// clears the corresponding date.
//
// Status is not patchable; use Transition. The owner is not patchable; use
// Delegate.
type TaskPatch struct {
	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64 `json:"expected_version,omitempty"`

	Title               *string        `json:"title,omitempty"`
	Description         *string        `json:"description,omitempty"`
	Priority            *ir.Priority   `json:"priority,omitempty"`
	Category            *string        `json:"category,omitempty"`
	Visibility          *ir.Visibility `json:"visibility,omitempty"`
	ProjectID           *string        `json:"project_id,omitempty"`
	StartDate           *ir.Date       `json:"start_date,omitempty"`
	DueDate             *ir.Date       `json:"due_date,omitempty"`
	EstimatedHours      *float64       `json:"estimated_hours,omitempty"`
	BudgetHours         *float64       `json:"budget_hours,omitempty"`
	TimeTrackingEnabled *bool          `json:"time_tracking_enabled,omitempty"`
	IsBillable          *bool          `json:"is_billable,omitempty"`
	ClientReference     *string        `json:"client_reference,omitempty"`
	IsRecurring         *bool          `json:"is_recurring,omitempty"`
	RecurringFrequency  *ir.Frequency  `json:"recurring_frequency,omitempty"`
	RecurringEndsOn     *ir.Date       `json:"recurring_ends_on,omitempty"`
	Assignees           *[]string      `json:"assignees,omitempty"`
	Approvers           *[]string      `json:"approvers,omitempty"`
	Watchers            *[]string      `json:"watchers,omitempty"`
	AcceptanceCriteria  *string        `json:"acceptance_criteria,omitempty"`
	Notes               *string        `json:"notes,omitempty"`
	Tags                *[]string      `json:"tags,omitempty"`
}

// apply merges p into t and returns the names of fields whose value changed.
func (p TaskPatch) apply(t *ir.Task) []string {
	var changed []string
	setString := func(name string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setFloat := func(name string, dst *float64, src *float64) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setBool := func(name string, dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setDate := func(name string, dst **ir.Date, src *ir.Date) {
		if src == nil {
			return
		}
		if src.IsZero() {
			if *dst != nil {
				*dst = nil
				changed = append(changed, name)
			}
			return
		}
		if *dst == nil || **dst != *src {
			d := *src
			*dst = &d
			changed = append(changed, name)
		}
	}
	setSet := func(name string, dst *[]string, src *[]string) {
		if src == nil {
			return
		}
		next := ir.NormalizeSet(*src)
		if !slices.Equal(ir.NormalizeSet(*dst), next) {
			*dst = next
			changed = append(changed, name)
		}
	}

	setString("title", &t.Title, trimmed(p.Title))
	setString("description", &t.Description, p.Description)
	if p.Priority != nil && t.Priority != *p.Priority {
		t.Priority = *p.Priority
		changed = append(changed, "priority")
	}
	setString("category", &t.Category, p.Category)
	if p.Visibility != nil && t.Visibility != *p.Visibility {
		t.Visibility = *p.Visibility
		changed = append(changed, "visibility")
	}
	setString("project_id", &t.ProjectID, p.ProjectID)
	setDate("start_date", &t.StartDate, p.StartDate)
	setDate("due_date", &t.DueDate, p.DueDate)
	setFloat("estimated_hours", &t.EstimatedHours, p.EstimatedHours)
	setFloat("budget_hours", &t.BudgetHours, p.BudgetHours)
	setBool("time_tracking_enabled", &t.TimeTrackingEnabled, p.TimeTrackingEnabled)
	setBool("is_billable", &t.IsBillable, p.IsBillable)
	setString("client_reference", &t.ClientReference, p.ClientReference)
	setBool("is_recurring", &t.IsRecurring, p.IsRecurring)
	if p.RecurringFrequency != nil && t.RecurringFrequency != *p.RecurringFrequency {
		t.RecurringFrequency = *p.RecurringFrequency
		changed = append(changed, "recurring_frequency")
	}
	setDate("recurring_ends_on", &t.RecurringEndsOn, p.RecurringEndsOn)
	setSet("assignees", &t.Assignees, p.Assignees)
	setSet("approvers", &t.Approvers, p.Approvers)
	setSet("watchers", &t.Watchers, p.Watchers)
	setString("acceptance_criteria", &t.AcceptanceCriteria, p.AcceptanceCriteria)
	setString("notes", &t.Notes, p.Notes)
	setSet("tags", &t.Tags, p.Tags)
	return changed
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// UpdateTask applies patch to a task and appends one updated entry naming the
// changed fields. A patch that changes nothing writes nothing.
func (e *Engine) UpdateTask(ctx context.Context, actor ir.Actor, taskID string, patch TaskPatch) (*ir.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	now := e.Now()
	var (
		t       *ir.Task
		changed []string
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if t, err = loadTask(ctx, tx, actor, taskID); err != nil {
			return err
		}
		if err := checkVersion(t, patch.ExpectedVersion); err != nil {
			return err
		}
		if changed = patch.apply(t); len(changed) == 0 {
			return nil
		}
		normalizeTask(t)
		if err := validateTask(t); err != nil {
			return withTaskID(err, t.ID)
		}
		if err := validateReferences(ctx, tx, t); err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := saveTask(ctx, tx, t); err != nil {
			return err
		}
		return e.record(ctx, tx, t.ID, actor.MemberID, ir.ActionUpdated,
			"updated "+strings.Join(changed, ", "), now)
	})
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		e.logger.Debug("task updated", "task", t.ID, "fields", changed)
	}
	return t, nil
}

// DeleteTask hard-deletes a task with its edges, time entries, history,
// comments and attachments.
func (e *Engine) DeleteTask(ctx context.Context, actor ir.Actor, taskID string) error {
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := loadTask(ctx, tx, actor, taskID); err != nil {
			return err
		}
		return mapStoreError(tx.DeleteTask(ctx, taskID), "task", taskID)
	})
	if err != nil {
		return err
	}
	e.logger.Debug("task deleted", "task", taskID)
	return nil
}

// ListTasks returns tasks matching filter within the actor's organization.
// filter.OrganizationID is always overridden by the actor's.
func (e *Engine) ListTasks(ctx context.Context, actor ir.Actor, filter store.TaskFilter) ([]*ir.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	filter.OrganizationID = actor.OrganizationID
	for _, s := range filter.Statuses {
		if !s.Valid() {
			return nil, newValidationError("status", "unknown status %q", s)
		}
	}
	if filter.DueFrom != nil && filter.DueTo != nil && filter.DueTo.Before(*filter.DueFrom) {
		return nil, newValidationError("due_to", "due range end is before its start")
	}
	return e.store.ListTasks(ctx, filter)
}

// ListByProject returns every task of a project.
func (e *Engine) ListByProject(ctx context.Context, actor ir.Actor, projectID string) ([]*ir.Task, error) {
	if _, err := e.GetProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return e.ListTasks(ctx, actor, store.TaskFilter{ProjectID: projectID})
}
