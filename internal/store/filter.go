package store

import (
	"strings"

	"github.com/roach88/taskflow/internal/ir"
)

// taskOrder is the deterministic ordering for task lists: dated tasks first
// by due date, then creation time, with id as the final tiebreaker.
const taskOrder = "due_date IS NULL, due_date ASC, created_at ASC, id ASC"

// TaskFilter selects tasks. Zero-valued fields do not constrain the result.
type TaskFilter struct {
	OrganizationID string
	ProjectID      string
	// Assignee matches the owner (assigned_to) or any member of assignees.
	Assignee string
	Statuses []ir.Status
	DueFrom  *ir.Date
	DueTo    *ir.Date
	Limit    int
}

// compile converts the filter to a parameterized WHERE clause.
// All values are bound as parameters, never interpolated.
func (f TaskFilter) compile() (string, []any) {
	var (
		preds []string
		args  []any
	)
	if f.OrganizationID != "" {
		preds = append(preds, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.ProjectID != "" {
		preds = append(preds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Assignee != "" {
		preds = append(preds,
			"(assigned_to = ? OR EXISTS (SELECT 1 FROM json_each(tasks.assignees) WHERE json_each.value = ?))")
		args = append(args, f.Assignee, f.Assignee)
	}
	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Statuses)), ", ")
		preds = append(preds, "status IN ("+placeholders+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if f.DueFrom != nil && !f.DueFrom.IsZero() {
		preds = append(preds, "due_date >= ?")
		args = append(args, f.DueFrom.String())
	}
	if f.DueTo != nil && !f.DueTo.IsZero() {
		preds = append(preds, "due_date <= ?")
		args = append(args, f.DueTo.String())
	}
	if len(preds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}
