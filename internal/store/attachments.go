package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskflow/internal/ir"
)

// InsertComment appends a comment to a task's conversation.
func (c *conn) InsertComment(ctx context.Context, cm ir.Comment) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, actor, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cm.ID, cm.TaskID, cm.Actor, cm.Body, formatTime(cm.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments returns a task's comments oldest first.
func (c *conn) ListComments(ctx context.Context, taskID string) ([]ir.Comment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, task_id, actor, body, created_at FROM comments
		WHERE task_id = ? ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []ir.Comment{}
	for rows.Next() {
		var (
			cm        ir.Comment
			createdAt string
		)
		if err := rows.Scan(&cm.ID, &cm.TaskID, &cm.Actor, &cm.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if cm.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		comments = append(comments, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// InsertAttachment stores an attachment blob. Size is taken from Data.
func (c *conn) InsertAttachment(ctx context.Context, a ir.Attachment) error {
	if a.Data == nil {
		a.Data = []byte{}
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO attachments (id, task_id, name, content_type, size, data, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.Name, a.ContentType, int64(len(a.Data)), a.Data, a.UploadedBy, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// ListAttachments returns attachment metadata for a task without blob data.
func (c *conn) ListAttachments(ctx context.Context, taskID string) ([]ir.Attachment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, task_id, name, content_type, size, uploaded_by, created_at
		FROM attachments WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	attachments := []ir.Attachment{}
	for rows.Next() {
		var (
			a         ir.Attachment
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Name, &a.ContentType, &a.Size, &a.UploadedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}

// GetAttachment loads an attachment including its data.
func (c *conn) GetAttachment(ctx context.Context, id string) (*ir.Attachment, error) {
	var (
		a         ir.Attachment
		createdAt string
	)
	err := c.q.QueryRowContext(ctx, `
		SELECT id, task_id, name, content_type, size, data, uploaded_by, created_at
		FROM attachments WHERE id = ?
	`, id).Scan(&a.ID, &a.TaskID, &a.Name, &a.ContentType, &a.Size, &a.Data, &a.UploadedBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}
