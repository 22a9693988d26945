package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// MaxAttachmentSize is the largest attachment accepted, in bytes.
const MaxAttachmentSize = 10 << 20

// AddComment appends to a task's conversation and records a commented entry.
// The body is kept in the comment store only.
func (e *Engine) AddComment(ctx context.Context, actor ir.Actor, taskID, body string) (*ir.Comment, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, newValidationError("body", "comment body is required")
	}
	now := e.Now()
	c := &ir.Comment{
		ID:        e.ids.Generate(),
		TaskID:    taskID,
		Actor:     actor.MemberID,
		Body:      body,
		CreatedAt: now,
	}
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := loadTask(ctx, tx, actor, taskID); err != nil {
			return err
		}
		if err := tx.InsertComment(ctx, *c); err != nil {
			return err
		}
		return e.record(ctx, tx, taskID, actor.MemberID, ir.ActionCommented, "comment "+c.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns a task's comments oldest first.
func (e *Engine) ListComments(ctx context.Context, actor ir.Actor, taskID string) ([]ir.Comment, error) {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return nil, err
	}
	return e.store.ListComments(ctx, taskID)
}

// AttachmentUpload is a file to attach to a task.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// AddAttachment stores a file against a task and records an
// attachment_added entry.
func (e *Engine) AddAttachment(ctx context.Context, actor ir.Actor, taskID string, file AttachmentUpload) (*ir.Attachment, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		return nil, newValidationError("name", "attachment name is required")
	}
	if len(file.Data) > MaxAttachmentSize {
		return nil, newValidationError("data", "attachment %s is %d bytes, limit is %d", name, len(file.Data), MaxAttachmentSize)
	}
	now := e.Now()
	a := &ir.Attachment{
		ID:          e.ids.Generate(),
		TaskID:      taskID,
		Name:        name,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
		UploadedBy:  actor.MemberID,
		CreatedAt:   now,
	}
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := loadTask(ctx, tx, actor, taskID); err != nil {
			return err
		}
		stored := *a
		stored.Data = file.Data
		if err := tx.InsertAttachment(ctx, stored); err != nil {
			return err
		}
		return e.record(ctx, tx, taskID, actor.MemberID, ir.ActionAttachmentAdded, "attached "+name, now)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttachments returns attachment metadata for a task.
func (e *Engine) ListAttachments(ctx context.Context, actor ir.Actor, taskID string) ([]ir.Attachment, error) {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return nil, err
	}
	return e.store.ListAttachments(ctx, taskID)
}

// DownloadAttachment returns an attachment with its data.
func (e *Engine) DownloadAttachment(ctx context.Context, actor ir.Actor, attachmentID string) (*ir.Attachment, error) {
	a, err := e.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, mapStoreError(err, "attachment", attachmentID)
	}
	if _, err := loadTask(ctx, e.store, actor, a.TaskID); err != nil {
		return nil, newNotFoundError("attachment", attachmentID)
	}
	return a, nil
}

// CreateResult is the outcome of CreateTaskWithAttachments.
type CreateResult struct {
	Task        *ir.Task        `json:"task"`
	Attachments []ir.Attachment `json:"attachments"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// CreateTaskWithAttachments creates a task and then uploads each file on its
// own. Uploads are not transactional with the task: a failed upload becomes a
// warning and the task still exists.
func (e *Engine) CreateTaskWithAttachments(ctx context.Context, actor ir.Actor, draft ir.Task, files []AttachmentUpload) (*CreateResult, error) {
	t, err := e.CreateTask(ctx, actor, draft)
	if err != nil {
		return nil, err
	}
	result := &CreateResult{Task: t, Attachments: []ir.Attachment{}}
	for _, f := range files {
		a, err := e.AddAttachment(ctx, actor, t.ID, f)
		if err != nil {
			e.logger.Warn("attachment upload failed", "task", t.ID, "file", f.Name, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("attachment %q failed: %v", f.Name, err))
			continue
		}
		result.Attachments = append(result.Attachments, *a)
	}
	return result, nil
}
