package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// transitions is the single authoritative status table. approved and rejected
// are terminal.
var transitions = map[ir.Status][]ir.Status{
	ir.StatusPending:    {ir.StatusInProgress, ir.StatusOnHold, ir.StatusReview},
	ir.StatusInProgress: {ir.StatusReview, ir.StatusCompleted, ir.StatusOnHold, ir.StatusPending},
	ir.StatusOnHold:     {ir.StatusPending, ir.StatusInProgress},
	ir.StatusReview:     {ir.StatusInProgress, ir.StatusCompleted},
	ir.StatusCompleted:  {ir.StatusApproved, ir.StatusRejected, ir.StatusInProgress},
	ir.StatusApproved:   {},
	ir.StatusRejected:   {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to ir.Status) bool {
	return slices.Contains(transitions[from], to)
}

// AllowedTransitions returns the statuses reachable from from in one step.
// The returned slice is a copy.
func AllowedTransitions(from ir.Status) []ir.Status {
	return slices.Clone(transitions[from])
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s ir.Status) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// gated reports whether entering to requires resolved prerequisites.
func gated(to ir.Status) bool {
	return to == ir.StatusInProgress || to == ir.StatusCompleted
}

// TransitionRequest asks to move a task to a new status.
type TransitionRequest struct {
	TaskID string    `json:"task_id"`
	To     ir.Status `json:"to"`
	// Reason is required when To is rejected and recorded otherwise.
	Reason string `json:"reason,omitempty"`
	// ExpectedVersion, when non-zero, must equal the stored version.
	ExpectedVersion int64 `json:"expected_version,omitempty"`
}

// TransitionResult is the outcome of a successful transition.
type TransitionResult struct {
	Task *ir.Task  `json:"task"`
	From ir.Status `json:"from"`
	// Successor is the next occurrence spawned when a recurring task completed.
	Successor *ir.Task `json:"successor,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Transition validates and applies a status change.
//
// The status write and its status_changed entry commit together. When a
// recurring task enters completed, the next occurrence is spawned after
// commit; a spawn failure is reported as a warning and left to Tick.
func (e *Engine) Transition(ctx context.Context, actor ir.Actor, req TransitionRequest) (*TransitionResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if !req.To.Valid() {
		return nil, &Error{
			Code:    CodeValidation,
			Message: fmt.Sprintf("unknown status %q", req.To),
			TaskID:  req.TaskID,
			Field:   "to",
		}
	}
	reason := strings.TrimSpace(req.Reason)
	now := e.Now()

	var (
		t    *ir.Task
		from ir.Status
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if t, err = loadTask(ctx, tx, actor, req.TaskID); err != nil {
			return err
		}
		if err := checkVersion(t, req.ExpectedVersion); err != nil {
			return err
		}
		from = t.Status
		if !CanTransition(from, req.To) {
			return newInvalidTransitionError(t.ID, from, req.To)
		}
		if req.To == ir.StatusRejected && reason == "" {
			return newMissingReasonError(t.ID, from)
		}
		if e.enforcePrerequisites && gated(req.To) {
			blocking, err := tx.UnresolvedPrerequisites(ctx, t.ID)
			if err != nil {
				return err
			}
			if len(blocking) > 0 {
				return newBlockedError(t.ID, from, req.To, blocking)
			}
		}

		applyStatus(t, req.To, actor.MemberID, reason, now)
		if err := saveTask(ctx, tx, t); err != nil {
			return err
		}
		return e.record(ctx, tx, t.ID, actor.MemberID, ir.ActionStatusChanged,
			statusDescription(from, req.To, reason), now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("task transitioned", "task", t.ID, "from", from, "to", t.Status)
	result := &TransitionResult{Task: t, From: from}

	if t.Status == ir.StatusCompleted && t.IsRecurring {
		successor, err := e.OnCompleted(ctx, t, now)
		if err != nil {
			e.logger.Warn("recurrence spawn failed", "task", t.ID, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("next occurrence not created: %v", err))
		}
		result.Successor = successor
	}
	return result, nil
}

// applyStatus sets the status and its side-effect fields.
func applyStatus(t *ir.Task, to ir.Status, actorID, reason string, now time.Time) {
	from := t.Status
	t.Status = to
	t.UpdatedAt = now

	switch to {
	case ir.StatusInProgress:
		if t.StartedAt == nil {
			started := now
			t.StartedAt = &started
		}
		if from == ir.StatusCompleted {
			t.CompletedAt = nil
		}
	case ir.StatusCompleted:
		completed := now
		t.CompletedAt = &completed
	case ir.StatusApproved:
		approved := now
		t.ApprovedBy = actorID
		t.ApprovalDate = &approved
	case ir.StatusRejected:
		rejected := now
		t.RejectedBy = actorID
		t.RejectionDate = &rejected
		t.RejectionReason = reason
	}
}

// statusDescription renders "<from> -> <to>" with an optional ": <reason>".
func statusDescription(from, to ir.Status, reason string) string {
	desc := fmt.Sprintf("%s -> %s", from, to)
	if reason != "" {
		desc += ": " + reason
	}
	return desc
}
