package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskflow/internal/ir"
)

// AppendHistory appends an entry to the task's chain. Seq, PrevHash and Hash
// are assigned here; the caller supplies ID, TaskID, Actor, Action,
// Description and CreatedAt. The completed entry is returned.
//
// Must run inside the same transaction as the state change it records.
func (c *conn) AppendHistory(ctx context.Context, e ir.HistoryEntry) (ir.HistoryEntry, error) {
	var (
		lastSeq  int64
		lastHash string
	)
	err := c.q.QueryRowContext(ctx, `
		SELECT seq, hash FROM history WHERE task_id = ?
		ORDER BY seq DESC LIMIT 1
	`, e.TaskID).Scan(&lastSeq, &lastHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ir.HistoryEntry{}, fmt.Errorf("append history: read head: %w", err)
	}

	e.Seq = lastSeq + 1
	e.PrevHash = lastHash
	e.Hash, err = ir.HistoryHash(e)
	if err != nil {
		return ir.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO history (id, task_id, seq, actor, action, description, created_at, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, e.Seq, e.Actor, string(e.Action), e.Description,
		formatTime(e.CreatedAt), e.PrevHash, e.Hash)
	if err != nil {
		return ir.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	return e, nil
}

// ListHistory returns a task's entries oldest first.
// Returns an empty slice (not nil) when there are none.
func (c *conn) ListHistory(ctx context.Context, taskID string) ([]ir.HistoryEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, task_id, seq, actor, action, description, created_at, prev_hash, hash
		FROM history WHERE task_id = ?
		ORDER BY seq ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []ir.HistoryEntry{}
	for rows.Next() {
		var (
			e         ir.HistoryEntry
			action    string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Seq, &e.Actor, &action, &e.Description,
			&createdAt, &e.PrevHash, &e.Hash); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Action = ir.Action(action)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// ChainError reports the first history entry whose hash does not verify.
type ChainError struct {
	TaskID string
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("history chain broken for task %s at seq %d: %s", e.TaskID, e.Seq, e.Reason)
}

// VerifyHistory recomputes the hash chain of a task's history.
// Returns nil if every entry links to its predecessor and hashes correctly.
func (c *conn) VerifyHistory(ctx context.Context, taskID string) error {
	entries, err := c.ListHistory(ctx, taskID)
	if err != nil {
		return err
	}
	prev := ""
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return &ChainError{TaskID: taskID, Seq: e.Seq, Reason: fmt.Sprintf("expected seq %d", i+1)}
		}
		if e.PrevHash != prev {
			return &ChainError{TaskID: taskID, Seq: e.Seq, Reason: "prev_hash does not match predecessor"}
		}
		want, err := ir.HistoryHash(e)
		if err != nil {
			return err
		}
		if want != e.Hash {
			return &ChainError{TaskID: taskID, Seq: e.Seq, Reason: "hash mismatch"}
		}
		prev = e.Hash
	}
	return nil
}
