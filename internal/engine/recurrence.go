package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// Occurrence holds the dates of the next instance of a recurring task.
type Occurrence struct {
	StartDate *ir.Date
	DueDate   *ir.Date
}

// NextOccurrence computes the dates of the instance following t, which was
// completed on completedOn. Returns ok=false when t does not recur or the
// series has ended.
//
// Each present date advances by one period. A task with neither date uses
// completedOn as the base for the next start. The series ends when the next
// start (or due, without a start) falls after recurring_ends_on, or when
// today is already past it.
func NextOccurrence(t *ir.Task, completedOn, today ir.Date) (Occurrence, bool) {
	if !t.IsRecurring || !t.RecurringFrequency.Valid() {
		return Occurrence{}, false
	}
	freq := t.RecurringFrequency

	var next Occurrence
	if t.StartDate != nil {
		next.StartDate = ir.DatePtr(freq.Advance(*t.StartDate))
	}
	if t.DueDate != nil {
		next.DueDate = ir.DatePtr(freq.Advance(*t.DueDate))
	}
	if next.StartDate == nil && next.DueDate == nil {
		next.StartDate = ir.DatePtr(freq.Advance(completedOn))
	}

	if t.RecurringEndsOn != nil {
		endsOn := *t.RecurringEndsOn
		ref := next.StartDate
		if ref == nil {
			ref = next.DueDate
		}
		if ref.After(endsOn) || today.After(endsOn) {
			return Occurrence{}, false
		}
	}
	return next, true
}

// successorOf builds the next instance of parent: template fields copied,
// status pending, fresh history and no time entries.
func successorOf(parent *ir.Task, next Occurrence, id string, now time.Time) *ir.Task {
	return &ir.Task{
		ID:                  id,
		OrganizationID:      parent.OrganizationID,
		ProjectID:           parent.ProjectID,
		Title:               parent.Title,
		Description:         parent.Description,
		Status:              ir.StatusPending,
		Priority:            parent.Priority,
		Category:            parent.Category,
		Visibility:          parent.Visibility,
		StartDate:           next.StartDate,
		DueDate:             next.DueDate,
		CreatedAt:           now,
		UpdatedAt:           now,
		CreatedBy:           ir.SystemMemberID,
		EstimatedHours:      parent.EstimatedHours,
		BudgetHours:         parent.BudgetHours,
		TimeTrackingEnabled: parent.TimeTrackingEnabled,
		IsBillable:          parent.IsBillable,
		ClientReference:     parent.ClientReference,
		IsRecurring:         true,
		RecurringFrequency:  parent.RecurringFrequency,
		RecurringEndsOn:     parent.RecurringEndsOn,
		RecurrenceParentID:  parent.ID,
		AssignedTo:          parent.AssignedTo,
		Assignees:           slices.Clone(parent.Assignees),
		Approvers:           slices.Clone(parent.Approvers),
		Watchers:            slices.Clone(parent.Watchers),
		AcceptanceCriteria:  parent.AcceptanceCriteria,
		Tags:                slices.Clone(parent.Tags),
		Version:             1,
	}
}

// OnCompleted spawns the next occurrence of a completed recurring task.
//
// Returns (nil, nil) when the series has ended or a successor already exists.
// The successor and its created entry commit together.
func (e *Engine) OnCompleted(ctx context.Context, task *ir.Task, now time.Time) (*ir.Task, error) {
	completedOn := ir.DateOf(now)
	if task.CompletedAt != nil {
		completedOn = ir.DateOf(*task.CompletedAt)
	}
	next, ok := NextOccurrence(task, completedOn, ir.DateOf(now))
	if !ok {
		return nil, nil
	}

	successor := successorOf(task, next, e.ids.Generate(), now)
	normalizeTask(successor)
	if err := validateTask(successor); err != nil {
		return nil, withTaskID(err, task.ID)
	}

	var inserted bool
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if inserted, err = tx.InsertSuccessor(ctx, successor); err != nil || !inserted {
			return err
		}
		return e.record(ctx, tx, successor.ID, ir.SystemMemberID, ir.ActionCreated,
			fmt.Sprintf("created as next %s occurrence of %s", task.RecurringFrequency, task.ID), now)
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}

	e.logger.Debug("occurrence spawned", "parent", task.ID, "task", successor.ID)
	return e.store.GetTask(ctx, successor.ID)
}

// TickResult reports what a recurrence tick did.
type TickResult struct {
	Spawned  []*ir.Task `json:"spawned"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Tick catches up recurrence: every completed or approved recurring task
// without a successor gets one, unless its series has ended. A failure on one
// task becomes a warning and does not stop the others.
//
// Tick runs across all organizations; it is a batch operation driven by the
// caller's clock.
func (e *Engine) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	candidates, err := e.store.RecurrenceCandidates(ctx)
	if err != nil {
		return nil, err
	}
	result := &TickResult{Spawned: []*ir.Task{}}
	for _, t := range candidates {
		successor, err := e.OnCompleted(ctx, t, now)
		if err != nil {
			e.logger.Warn("recurrence spawn failed", "task", t.ID, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", t.ID, err))
			continue
		}
		if successor != nil {
			result.Spawned = append(result.Spawned, successor)
		}
	}
	return result, nil
}
