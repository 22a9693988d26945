package engine

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// TimeEntryRequest logs effort against a task.
type TimeEntryRequest struct {
	TaskID      string  `json:"task_id"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description,omitempty"`
}

// TimeEntryResult is the outcome of a successful AddTimeEntry.
type TimeEntryResult struct {
	Entry           ir.TimeEntry `json:"entry"`
	Task            *ir.Task     `json:"task"`
	RemainingBudget float64      `json:"remaining_budget"`
}

// AddTimeEntry records an immutable time entry and recomputes time_spent as
// the sum of every entry for the task.
//
// Entries from different actors commute, so no ExpectedVersion is taken.
// The task's version still advances.
func (e *Engine) AddTimeEntry(ctx context.Context, actor ir.Actor, req TimeEntryRequest) (*TimeEntryResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	now := e.Now()
	entry := ir.TimeEntry{
		ID:          e.ids.Generate(),
		TaskID:      req.TaskID,
		Actor:       actor.MemberID,
		Hours:       req.Hours,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
	}

	var t *ir.Task
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if t, err = loadTask(ctx, tx, actor, req.TaskID); err != nil {
			return err
		}
		if !t.TimeTrackingEnabled {
			return newTimeTrackingDisabledError(t.ID)
		}
		if req.Hours <= 0 || math.IsNaN(req.Hours) || math.IsInf(req.Hours, 0) {
			return newInvalidAmountError(t.ID, req.Hours)
		}
		if err := tx.InsertTimeEntry(ctx, entry); err != nil {
			return err
		}
		total, err := tx.SumTimeEntries(ctx, t.ID)
		if err != nil {
			return err
		}
		t.TimeSpent = total
		t.UpdatedAt = now
		if err := saveTask(ctx, tx, t); err != nil {
			return err
		}
		return e.record(ctx, tx, t.ID, actor.MemberID, ir.ActionTimeLogged,
			timeDescription(entry), now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("time logged", "task", t.ID, "hours", req.Hours, "total", t.TimeSpent)
	return &TimeEntryResult{
		Entry:           entry,
		Task:            t,
		RemainingBudget: t.RemainingBudget(),
	}, nil
}

func timeDescription(entry ir.TimeEntry) string {
	desc := "logged " + FormatHours(entry.Hours)
	if entry.Description != "" {
		desc += ": " + entry.Description
	}
	return desc
}

// FormatHours renders hours without trailing zeros, e.g. "1.5h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

// RemainingBudget returns budget_hours - time_spent. A negative value means
// the task is over budget; it is not an error.
func (e *Engine) RemainingBudget(ctx context.Context, actor ir.Actor, taskID string) (float64, error) {
	t, err := loadTask(ctx, e.store, actor, taskID)
	if err != nil {
		return 0, err
	}
	return t.RemainingBudget(), nil
}

// ListTimeEntries returns a task's entries oldest first.
func (e *Engine) ListTimeEntries(ctx context.Context, actor ir.Actor, taskID string) ([]ir.TimeEntry, error) {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return nil, err
	}
	return e.store.ListTimeEntries(ctx, taskID)
}
