package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// DelegateRequest reassigns a task's owner.
type DelegateRequest struct {
	TaskID string `json:"task_id"`
	To     string `json:"to"`
	Notes  string `json:"notes,omitempty"`
	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
}

// DelegateResult is the outcome of a successful delegation.
type DelegateResult struct {
	Task *ir.Task `json:"task"`
	// Previous is the owner before delegation, empty if unassigned.
	Previous string   `json:"previous,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Delegate sets the task's owner to req.To and records who delegated it.
//
// Only the most recent delegation is kept on the task; earlier ones live in
// history. Status is unchanged. The new owner is notified after commit.
func (e *Engine) Delegate(ctx context.Context, actor ir.Actor, req DelegateRequest) (*DelegateResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if req.To == "" {
		return nil, newValidationError("to", "delegation target is required")
	}
	notes := strings.TrimSpace(req.Notes)
	now := e.Now()

	var (
		t        *ir.Task
		previous string
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if t, err = loadTask(ctx, tx, actor, req.TaskID); err != nil {
			return err
		}
		if err := checkVersion(t, req.ExpectedVersion); err != nil {
			return err
		}
		if err := requireMember(ctx, tx, actor.OrganizationID, "to", req.To); err != nil {
			return withTaskID(err, t.ID)
		}

		previous = t.AssignedTo
		delegated := now
		t.AssignedTo = req.To
		t.DelegatedBy = actor.MemberID
		t.DelegationDate = &delegated
		t.DelegationNotes = notes
		t.UpdatedAt = now
		if err := saveTask(ctx, tx, t); err != nil {
			return err
		}
		return e.record(ctx, tx, t.ID, actor.MemberID, ir.ActionDelegated,
			delegationDescription(previous, req.To, notes), now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("task delegated", "task", t.ID, "from", previous, "to", req.To)
	result := &DelegateResult{Task: t, Previous: previous}

	n := Notification{
		Kind:      "delegated",
		TaskID:    t.ID,
		Recipient: req.To,
		Actor:     actor.MemberID,
		Message:   fmt.Sprintf("%s delegated %q to you", actor.MemberID, t.Title),
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("notification failed", "task", t.ID, "recipient", req.To, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("notification to %s failed: %v", req.To, err))
	}
	return result, nil
}

func delegationDescription(previous, to, notes string) string {
	var desc string
	if previous == "" {
		desc = "delegated to " + to
	} else {
		desc = fmt.Sprintf("delegated from %s to %s", previous, to)
	}
	if notes != "" {
		desc += ": " + notes
	}
	return desc
}
