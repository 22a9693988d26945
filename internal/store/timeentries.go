package store

import (
	"context"
	"fmt"

	"github.com/roach88/taskflow/internal/ir"
)

// InsertTimeEntry appends an immutable time entry.
func (c *conn) InsertTimeEntry(ctx context.Context, e ir.TimeEntry) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO time_entries (id, task_id, actor, hours, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, e.Actor, e.Hours, e.Description, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert time entry: %w", err)
	}
	return nil
}

// SumTimeEntries derives time spent from the entry log.
func (c *conn) SumTimeEntries(ctx context.Context, taskID string) (float64, error) {
	var total float64
	err := c.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(hours), 0) FROM time_entries WHERE task_id = ?", taskID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum time entries: %w", err)
	}
	return total, nil
}

// ListTimeEntries returns a task's entries oldest first.
func (c *conn) ListTimeEntries(ctx context.Context, taskID string) ([]ir.TimeEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, task_id, actor, hours, description, created_at
		FROM time_entries WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.TimeEntry{}
	for rows.Next() {
		var (
			e         ir.TimeEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Actor, &e.Hours, &e.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time entries: %w", err)
	}
	return entries, nil
}
