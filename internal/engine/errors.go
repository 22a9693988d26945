package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// Error is returned by every engine operation that rejects a request.
//
// Errors are synchronous and leave state unchanged. Only
// CodeConcurrentModification is worth retrying (after re-reading the task);
// every other code means the request itself must change.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// TaskID identifies the affected task, if any.
	TaskID string

	// Field names the offending input field for validation errors.
	Field string

	// From and To carry the current and attempted status for transition errors.
	From ir.Status
	To   ir.Status

	// Details contains additional context (blocking task ids, cycle path).
	Details map[string]string
}

// Code categorizes engine errors.
type Code string

const (
	// CodeValidation indicates malformed input (missing title, bad dates).
	CodeValidation Code = "VALIDATION"

	// CodeInvalidTransition indicates the status pair is not in the transition table.
	CodeInvalidTransition Code = "INVALID_TRANSITION"

	// CodeMissingReason indicates a rejection without a reason.
	// It is a kind of validation error: HasCode(err, CodeValidation) matches it.
	CodeMissingReason Code = "MISSING_REASON"

	// CodeBlockedByPrerequisite indicates unresolved prerequisites gate the transition.
	CodeBlockedByPrerequisite Code = "BLOCKED_BY_PREREQUISITE"

	// CodeCycleDetected indicates a prerequisite edge would close a cycle.
	CodeCycleDetected Code = "CYCLE_DETECTED"

	// CodeTimeTrackingDisabled indicates time was logged on an untracked task.
	CodeTimeTrackingDisabled Code = "TIME_TRACKING_DISABLED"

	// CodeInvalidAmount indicates a non-positive or non-finite hours value.
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// CodeUnknownMember indicates a member reference outside the organization.
	CodeUnknownMember Code = "UNKNOWN_MEMBER"

	// CodeNotFound indicates a missing task, project or attachment.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConcurrentModification indicates the task changed since it was read.
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	var ctx []string
	if e.TaskID != "" {
		ctx = append(ctx, "task="+e.TaskID)
	}
	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}
	if e.From != "" || e.To != "" {
		ctx = append(ctx, fmt.Sprintf("from=%s, to=%s", e.From, e.To))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries code. Uses errors.As to handle wrapped
// errors. CodeValidation also matches CodeMissingReason.
func HasCode(err error, code Code) bool {
	got := CodeOf(err)
	if got == "" {
		return false
	}
	if code == CodeValidation && got == CodeMissingReason {
		return true
	}
	return got == code
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConflict reports whether err is a concurrent modification error.
func IsConflict(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// IsValidation reports whether err is a validation error, including a missing
// rejection reason.
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

func newValidationError(field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

func newInvalidTransitionError(taskID string, from, to ir.Status) *Error {
	allowed := make([]string, 0, len(transitions[from]))
	for _, s := range transitions[from] {
		allowed = append(allowed, string(s))
	}
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move task from %s to %s", from, to),
		TaskID:  taskID,
		From:    from,
		To:      to,
		Details: map[string]string{"allowed": strings.Join(allowed, ",")},
	}
}

func newMissingReasonError(taskID string, from ir.Status) *Error {
	return &Error{
		Code:    CodeMissingReason,
		Message: "rejecting a task requires a reason",
		TaskID:  taskID,
		Field:   "reason",
		From:    from,
		To:      ir.StatusRejected,
	}
}

func newBlockedError(taskID string, from, to ir.Status, blocking []*ir.Task) *Error {
	ids := make([]string, len(blocking))
	for i, t := range blocking {
		ids[i] = t.ID
	}
	return &Error{
		Code:    CodeBlockedByPrerequisite,
		Message: fmt.Sprintf("%d unresolved prerequisite(s)", len(ids)),
		TaskID:  taskID,
		From:    from,
		To:      to,
		Details: map[string]string{"blocking": strings.Join(ids, ",")},
	}
}

func newCycleError(from, to string, path []string) *Error {
	e := &Error{
		Code:    CodeCycleDetected,
		Message: fmt.Sprintf("%s cannot be a prerequisite of %s", from, to),
		TaskID:  to,
	}
	if len(path) > 0 {
		e.Details = map[string]string{"path": strings.Join(path, " -> ")}
	}
	return e
}

func newTimeTrackingDisabledError(taskID string) *Error {
	return &Error{
		Code:    CodeTimeTrackingDisabled,
		Message: "time tracking is disabled for this task",
		TaskID:  taskID,
	}
}

func newInvalidAmountError(taskID string, hours float64) *Error {
	return &Error{
		Code:    CodeInvalidAmount,
		Message: fmt.Sprintf("hours must be positive, got %v", hours),
		TaskID:  taskID,
		Field:   "hours",
	}
}

func newUnknownMemberError(field, memberID string) *Error {
	return &Error{
		Code:    CodeUnknownMember,
		Message: fmt.Sprintf("member %q is not in this organization", memberID),
		Field:   field,
		Details: map[string]string{"member": memberID},
	}
}

func newNotFoundError(kind, id string) *Error {
	e := &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
	}
	if kind == "task" {
		e.TaskID = id
	}
	return e
}

func newConflictError(taskID string, expected, actual int64) *Error {
	return &Error{
		Code:    CodeConcurrentModification,
		Message: "task was modified concurrently; re-read and retry",
		TaskID:  taskID,
		Details: map[string]string{
			"expected_version": fmt.Sprintf("%d", expected),
			"actual_version":   fmt.Sprintf("%d", actual),
		},
	}
}

// withTaskID stamps taskID onto an engine error that lacks one.
func withTaskID(err error, taskID string) error {
	var e *Error
	if errors.As(err, &e) && e.TaskID == "" {
		e.TaskID = taskID
	}
	return err
}

// mapStoreError converts store sentinels into engine errors. Other errors pass
// through unchanged.
func mapStoreError(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return newNotFoundError(kind, id)
	case errors.Is(err, store.ErrVersionConflict):
		return &Error{
			Code:    CodeConcurrentModification,
			Message: "task was modified concurrently; re-read and retry",
			TaskID:  id,
		}
	default:
		return err
	}
}
