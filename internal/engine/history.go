package engine

import (
	"context"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// RecordHistory appends a free-form entry to a task's history. Engine
// operations record their own entries; this is for collaborators that act on
// a task outside the engine.
func (e *Engine) RecordHistory(ctx context.Context, actor ir.Actor, taskID string, action ir.Action, description string) (ir.HistoryEntry, error) {
	if err := validateActor(actor); err != nil {
		return ir.HistoryEntry{}, err
	}
	if strings.TrimSpace(string(action)) == "" {
		return ir.HistoryEntry{}, newValidationError("action", "action is required")
	}
	now := e.Now()
	var entry ir.HistoryEntry
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := loadTask(ctx, tx, actor, taskID); err != nil {
			return err
		}
		var err error
		entry, err = tx.AppendHistory(ctx, ir.HistoryEntry{
			ID:          e.ids.Generate(),
			TaskID:      taskID,
			Actor:       actor.MemberID,
			Action:      action,
			Description: description,
			CreatedAt:   now,
		})
		return err
	})
	return entry, err
}

// GetHistory returns a task's entries oldest first.
func (e *Engine) GetHistory(ctx context.Context, actor ir.Actor, taskID string) ([]ir.HistoryEntry, error) {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return nil, err
	}
	return e.store.ListHistory(ctx, taskID)
}

// VerifyHistory recomputes a task's history hash chain. Returns a
// *store.ChainError naming the first broken entry.
func (e *Engine) VerifyHistory(ctx context.Context, actor ir.Actor, taskID string) error {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return err
	}
	return e.store.VerifyHistory(ctx, taskID)
}
