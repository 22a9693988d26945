package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/taskflow/internal/ir"
)

// taskColumns is the column list shared by every task SELECT.
const taskColumns = `id, organization_id, project_id, title, description, status, priority,
	category, visibility, start_date, due_date, created_at, updated_at, started_at,
	completed_at, created_by, estimated_hours, budget_hours, time_spent,
	time_tracking_enabled, is_billable, client_reference, is_recurring,
	recurring_frequency, recurring_ends_on, recurrence_parent_id, assigned_to,
	assignees, approvers, watchers, tags, delegated_by, delegation_date,
	delegation_notes, rejected_by, rejection_date, rejection_reason, approved_by,
	approval_date, acceptance_criteria, notes, version`

// taskArgs returns the insert values in taskColumns order.
func taskArgs(t *ir.Task) ([]any, error) {
	sets := make([]string, 4)
	for i, values := range [][]string{t.Assignees, t.Approvers, t.Watchers, t.Tags} {
		encoded, err := ir.MarshalSet(values)
		if err != nil {
			return nil, err
		}
		sets[i] = encoded
	}
	return []any{
		t.ID, t.OrganizationID, nullString(t.ProjectID), t.Title, t.Description,
		string(t.Status), string(t.Priority), t.Category, string(t.Visibility),
		nullDate(t.StartDate), nullDate(t.DueDate), formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.CreatedBy, t.EstimatedHours, t.BudgetHours, t.TimeSpent,
		boolInt(t.TimeTrackingEnabled), boolInt(t.IsBillable), t.ClientReference,
		boolInt(t.IsRecurring), string(t.RecurringFrequency), nullDate(t.RecurringEndsOn),
		nullString(t.RecurrenceParentID), t.AssignedTo,
		sets[0], sets[1], sets[2], sets[3],
		t.DelegatedBy, nullTime(t.DelegationDate), t.DelegationNotes,
		t.RejectedBy, nullTime(t.RejectionDate), t.RejectionReason,
		t.ApprovedBy, nullTime(t.ApprovalDate), t.AcceptanceCriteria, t.Notes,
		t.Version,
	}, nil
}

func scanTask(row rowScanner) (*ir.Task, error) {
	var (
		t                                           ir.Task
		projectID, startDate, dueDate, endsOn       sql.NullString
		startedAt, completedAt, parentID            sql.NullString
		delegationDate, rejectionDate, approvalDate sql.NullString
		createdAt, updatedAt                        string
		status, priority, visibility, frequency     string
		tracking, billable, recurring               int
		assignees, approvers, watchers, tags        string
	)
	err := row.Scan(
		&t.ID, &t.OrganizationID, &projectID, &t.Title, &t.Description, &status, &priority,
		&t.Category, &visibility, &startDate, &dueDate, &createdAt, &updatedAt, &startedAt,
		&completedAt, &t.CreatedBy, &t.EstimatedHours, &t.BudgetHours, &t.TimeSpent,
		&tracking, &billable, &t.ClientReference, &recurring,
		&frequency, &endsOn, &parentID, &t.AssignedTo,
		&assignees, &approvers, &watchers, &tags, &t.DelegatedBy, &delegationDate,
		&t.DelegationNotes, &t.RejectedBy, &rejectionDate, &t.RejectionReason, &t.ApprovedBy,
		&approvalDate, &t.AcceptanceCriteria, &t.Notes, &t.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.ProjectID = projectID.String
	t.RecurrenceParentID = parentID.String
	t.Status = ir.Status(status)
	t.Priority = ir.Priority(priority)
	t.Visibility = ir.Visibility(visibility)
	t.RecurringFrequency = ir.Frequency(frequency)
	t.TimeTrackingEnabled = tracking != 0
	t.IsBillable = billable != 0
	t.IsRecurring = recurring != 0

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		src sql.NullString
		dst **ir.Date
	}{{startDate, &t.StartDate}, {dueDate, &t.DueDate}, {endsOn, &t.RecurringEndsOn}} {
		if *f.dst, err = scanNullDate(f.src); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{startedAt, &t.StartedAt}, {completedAt, &t.CompletedAt},
		{delegationDate, &t.DelegationDate}, {rejectionDate, &t.RejectionDate},
		{approvalDate, &t.ApprovalDate},
	} {
		if *f.dst, err = scanNullTime(f.src); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		src string
		dst *[]string
	}{{assignees, &t.Assignees}, {approvers, &t.Approvers}, {watchers, &t.Watchers}, {tags, &t.Tags}} {
		if *f.dst, err = ir.UnmarshalSet(f.src); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// InsertTask writes a new task row. Relationship views are ignored; edges are
// written separately with InsertEdge.
func (c *conn) InsertTask(ctx context.Context, t *ir.Task) error {
	args, err := taskArgs(t)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	_, err = c.q.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// InsertSuccessor inserts a recurrence successor. Returns inserted=false when
// the parent already has a successor (the partial UNIQUE index makes
// spawning idempotent).
func (c *conn) InsertSuccessor(ctx context.Context, t *ir.Task) (inserted bool, err error) {
	if t.RecurrenceParentID == "" {
		return false, fmt.Errorf("insert successor: missing recurrence parent")
	}
	args, err := taskArgs(t)
	if err != nil {
		return false, fmt.Errorf("insert successor: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	result, err := c.q.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ("+placeholders+") ON CONFLICT DO NOTHING", args...)
	if err != nil {
		return false, fmt.Errorf("insert successor: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert successor: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetTask loads a task with its relationship views.
func (c *conn) GetTask(ctx context.Context, id string) (*ir.Task, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := c.loadRelations(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTask overwrites every mutable column of t, guarded by expectedVersion.
// On success t.Version is incremented to match the stored row.
//
// Returns ErrVersionConflict if the stored version differs and ErrNotFound if
// the row is gone.
func (c *conn) UpdateTask(ctx context.Context, t *ir.Task, expectedVersion int64) error {
	args, err := taskArgs(t)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	// Skip id (first) and version (last); both go in the WHERE clause.
	cols := strings.Split(taskColumns, ",")
	var set strings.Builder
	for i, col := range cols[1 : len(cols)-1] {
		if i > 0 {
			set.WriteString(", ")
		}
		set.WriteString(strings.TrimSpace(col))
		set.WriteString(" = ?")
	}
	values := append([]any{}, args[1:len(args)-1]...)
	values = append(values, t.ID, expectedVersion)

	result, err := c.q.ExecContext(ctx,
		"UPDATE tasks SET "+set.String()+", version = version + 1 WHERE id = ? AND version = ?",
		values...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := c.checkVersionedWrite(ctx, result, t.ID); err != nil {
		return err
	}
	t.Version = expectedVersion + 1
	return nil
}

// TouchTask bumps version and updated_at without changing other columns.
// Used when a task's relationships change.
func (c *conn) TouchTask(ctx context.Context, id string, expectedVersion int64, at time.Time) error {
	result, err := c.q.ExecContext(ctx, `
		UPDATE tasks SET updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, formatTime(at), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return c.checkVersionedWrite(ctx, result, id)
}

func (c *conn) checkVersionedWrite(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task %s: %w", id, ErrVersionConflict)
}

// DeleteTask removes a task. Edges, time entries, history, comments and
// attachments cascade.
func (c *conn) DeleteTask(ctx context.Context, id string) error {
	result, err := c.q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTasks returns tasks matching the filter in deterministic order.
func (c *conn) ListTasks(ctx context.Context, f TaskFilter) ([]*ir.Task, error) {
	where, args := f.compile()
	query := "SELECT " + taskColumns + " FROM tasks" + where + " ORDER BY " + taskOrder
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return c.queryTasks(ctx, query, args...)
}

// RecurrenceCandidates returns completed or approved recurring tasks that
// have no successor yet.
func (c *conn) RecurrenceCandidates(ctx context.Context) ([]*ir.Task, error) {
	return c.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.is_recurring = 1
		  AND t.status IN ('completed', 'approved')
		  AND NOT EXISTS (SELECT 1 FROM tasks s WHERE s.recurrence_parent_id = t.id)
		ORDER BY `+taskOrder)
}

// Successor returns the recurrence successor of a task, or ErrNotFound.
func (c *conn) Successor(ctx context.Context, parentID string) (*ir.Task, error) {
	tasks, err := c.queryTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE recurrence_parent_id = ? ORDER BY "+taskOrder, parentID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("successor of %s: %w", parentID, ErrNotFound)
	}
	return tasks[0], nil
}

func (c *conn) queryTasks(ctx context.Context, query string, args ...any) ([]*ir.Task, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	var tasks []*ir.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	// Relations are loaded after the cursor is closed; the pool has a single
	// connection and nested queries would otherwise block.
	for _, t := range tasks {
		if err := c.loadRelations(ctx, t); err != nil {
			return nil, err
		}
	}

	if tasks == nil {
		tasks = []*ir.Task{}
	}
	return tasks, nil
}
