package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/taskflow/internal/ir"
)

// normalizeEdge stores linked edges once, with the smaller id first.
func normalizeEdge(e ir.Edge) ir.Edge {
	if e.Kind == ir.EdgeLinked && e.To < e.From {
		e.From, e.To = e.To, e.From
	}
	return e
}

// InsertEdge writes a relationship. Returns inserted=false if it already exists.
func (c *conn) InsertEdge(ctx context.Context, e ir.Edge, at time.Time) (inserted bool, err error) {
	e = normalizeEdge(e)
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO task_edges (kind, from_id, to_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, from_id, to_id) DO NOTHING
	`, string(e.Kind), e.From, e.To, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("insert edge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert edge: rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteEdge removes a relationship. Returns ErrNotFound if absent.
func (c *conn) DeleteEdge(ctx context.Context, e ir.Edge) error {
	e = normalizeEdge(e)
	result, err := c.q.ExecContext(ctx,
		"DELETE FROM task_edges WHERE kind = ? AND from_id = ? AND to_id = ?",
		string(e.Kind), e.From, e.To)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete edge: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("edge %s %s->%s: %w", e.Kind, e.From, e.To, ErrNotFound)
	}
	return nil
}

// PrerequisiteEdges returns every prerequisite edge between tasks of an
// organization, ordered for deterministic traversal.
func (c *conn) PrerequisiteEdges(ctx context.Context, orgID string) ([]ir.Edge, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT e.from_id, e.to_id
		FROM task_edges e
		JOIN tasks t ON t.id = e.to_id
		WHERE e.kind = 'prerequisite' AND t.organization_id = ?
		ORDER BY e.from_id ASC, e.to_id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []ir.Edge{}
	for rows.Next() {
		e := ir.Edge{Kind: ir.EdgePrerequisite}
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// UnresolvedPrerequisites returns prerequisite tasks of taskID whose status is
// neither completed nor approved.
func (c *conn) UnresolvedPrerequisites(ctx context.Context, taskID string) ([]*ir.Task, error) {
	return c.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE id IN (SELECT from_id FROM task_edges WHERE kind = 'prerequisite' AND to_id = ?)
		  AND status NOT IN ('completed', 'approved')
		ORDER BY `+taskOrder, taskID)
}

// loadRelations fills the prerequisite, dependent and linked views of t.
func (c *conn) loadRelations(ctx context.Context, t *ir.Task) error {
	t.Prerequisites = []string{}
	t.Dependents = []string{}
	t.Linked = []string{}

	rows, err := c.q.QueryContext(ctx, `
		SELECT kind, from_id, to_id FROM task_edges
		WHERE from_id = ? OR to_id = ?
		ORDER BY kind ASC, from_id ASC, to_id ASC
	`, t.ID, t.ID)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, from, to string
		if err := rows.Scan(&kind, &from, &to); err != nil {
			return fmt.Errorf("scan relation: %w", err)
		}
		switch {
		case ir.EdgeKind(kind) == ir.EdgeLinked && from == t.ID:
			t.Linked = append(t.Linked, to)
		case ir.EdgeKind(kind) == ir.EdgeLinked:
			t.Linked = append(t.Linked, from)
		case to == t.ID:
			t.Prerequisites = append(t.Prerequisites, from)
		default:
			t.Dependents = append(t.Dependents, to)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate relations: %w", err)
	}
	t.Linked = ir.NormalizeSet(t.Linked)
	return nil
}
