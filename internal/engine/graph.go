package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// adjacency maps a task id to the ids it is a prerequisite of.
// Neighbor lists are sorted so traversal order is deterministic.
type adjacency map[string][]string

func buildAdjacency(edges []ir.Edge) adjacency {
	adj := make(adjacency)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
		if adj[e.To] == nil {
			adj[e.To] = []string{}
		}
	}
	for node := range adj {
		slices.Sort(adj[node])
	}
	return adj
}

// findPath runs depth-first reachability from start and returns the first
// path found to goal, or nil when goal is unreachable.
func findPath(adj adjacency, start, goal string) []string {
	visited := make(map[string]bool)
	var path []string

	var visit func(string) bool
	visit = func(node string) bool {
		visited[node] = true
		path = append(path, node)
		if node == goal {
			return true
		}
		for _, next := range adj[node] {
			if !visited[next] && visit(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if visit(start) {
		return path
	}
	return nil
}

// findCycles returns the strongly connected components of adj that form
// cycles, using Tarjan's algorithm. Each cycle is sorted; cycles are ordered
// by their first member.
func findCycles(adj adjacency) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		cycles  [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 || slices.Contains(adj[v], v) {
				slices.Sort(scc)
				cycles = append(cycles, scc)
			}
		}
	}

	nodes := make([]string, 0, len(adj))
	for node := range adj {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, seen := indices[node]; !seen {
			strongConnect(node)
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return cycles
}

// AddPrerequisite makes prereqID a prerequisite of taskID.
func (e *Engine) AddPrerequisite(ctx context.Context, actor ir.Actor, prereqID, taskID string) (*ir.Task, error) {
	return e.AddEdge(ctx, actor, ir.Edge{Kind: ir.EdgePrerequisite, From: prereqID, To: taskID})
}

// AddLinkedTask links two tasks symmetrically.
func (e *Engine) AddLinkedTask(ctx context.Context, actor ir.Actor, fromID, toID string) (*ir.Task, error) {
	return e.AddEdge(ctx, actor, ir.Edge{Kind: ir.EdgeLinked, From: fromID, To: toID})
}

// AddEdge inserts a relationship. For prerequisites it returns the dependent
// (To), whose history records the edge; for links it returns From, and the
// history entry goes to the endpoint chosen by linkOwner.
//
// Prerequisite edges are checked for reachability from To back to From
// before insertion; a hit fails with CodeCycleDetected and inserts nothing.
// Adding an edge that already exists is a no-op.
func (e *Engine) AddEdge(ctx context.Context, actor ir.Actor, edge ir.Edge) (*ir.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := validateEdge(edge); err != nil {
		return nil, err
	}
	now := e.Now()

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	var owner, result *ir.Task
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		from, err := loadTask(ctx, tx, actor, edge.From)
		if err != nil {
			return err
		}
		to, err := loadTask(ctx, tx, actor, edge.To)
		if err != nil {
			return err
		}

		var (
			action ir.Action
			desc   string
		)
		if edge.Kind == ir.EdgePrerequisite {
			edges, err := tx.PrerequisiteEdges(ctx, actor.OrganizationID)
			if err != nil {
				return err
			}
			if path := findPath(buildAdjacency(edges), to.ID, from.ID); path != nil {
				return newCycleError(from.ID, to.ID, append(path, to.ID))
			}
			owner, action, desc = to, ir.ActionPrerequisiteAdded, "prerequisite "+from.ID+" added"
			result = to
		} else {
			var other *ir.Task
			owner, other = linkOwner(from, to)
			action, desc = ir.ActionLinked, "linked to "+other.ID
			result = from
		}

		inserted, err := tx.InsertEdge(ctx, edge, now)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		if err := touchTask(ctx, tx, owner, now); err != nil {
			return err
		}
		return e.record(ctx, tx, owner.ID, actor.MemberID, action, desc, now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("edge added", "kind", edge.Kind, "from", edge.From, "to", edge.To)
	return loadTask(ctx, e.store, actor, result.ID)
}

// linkOwner orders the endpoints of a linked edge the way the store does, so
// adding and removing a link record on the same task whichever way round the
// caller names them.
func linkOwner(a, b *ir.Task) (owner, other *ir.Task) {
	if b.ID < a.ID {
		return b, a
	}
	return a, b
}

// RemoveEdge deletes a relationship and records the removal on the same task
// AddEdge recorded it on. It returns the same task AddEdge would.
func (e *Engine) RemoveEdge(ctx context.Context, actor ir.Actor, edge ir.Edge) (*ir.Task, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if !edge.Kind.Valid() {
		return nil, newValidationError("kind", "unknown edge kind %q", edge.Kind)
	}
	now := e.Now()

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	var owner, result *ir.Task
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		from, err := loadTask(ctx, tx, actor, edge.From)
		if err != nil {
			return err
		}
		to, err := loadTask(ctx, tx, actor, edge.To)
		if err != nil {
			return err
		}
		if err := tx.DeleteEdge(ctx, edge); err != nil {
			return mapStoreError(err, "edge", fmt.Sprintf("%s %s->%s", edge.Kind, edge.From, edge.To))
		}

		var (
			action ir.Action
			desc   string
		)
		if edge.Kind == ir.EdgePrerequisite {
			owner, action, desc = to, ir.ActionPrerequisiteRemoved, "prerequisite "+from.ID+" removed"
			result = to
		} else {
			var other *ir.Task
			owner, other = linkOwner(from, to)
			action, desc = ir.ActionLinkRemoved, "unlinked from "+other.ID
			result = from
		}
		if err := touchTask(ctx, tx, owner, now); err != nil {
			return err
		}
		return e.record(ctx, tx, owner.ID, actor.MemberID, action, desc, now)
	})
	if err != nil {
		return nil, err
	}
	return loadTask(ctx, e.store, actor, result.ID)
}

// UnresolvedPrerequisites returns prerequisite tasks of taskID that are
// neither completed nor approved.
func (e *Engine) UnresolvedPrerequisites(ctx context.Context, actor ir.Actor, taskID string) ([]*ir.Task, error) {
	if _, err := loadTask(ctx, e.store, actor, taskID); err != nil {
		return nil, err
	}
	return e.store.UnresolvedPrerequisites(ctx, taskID)
}

// GraphCycles audits the organization's prerequisite graph and returns every
// cycle found. AddEdge keeps the graph acyclic, so a non-empty result means
// the database was edited outside the engine.
func (e *Engine) GraphCycles(ctx context.Context, actor ir.Actor) ([][]string, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	edges, err := e.store.PrerequisiteEdges(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	cycles := findCycles(buildAdjacency(edges))
	if cycles == nil {
		cycles = [][]string{}
	}
	return cycles, nil
}

func validateEdge(edge ir.Edge) error {
	if !edge.Kind.Valid() {
		return newValidationError("kind", "unknown edge kind %q", edge.Kind)
	}
	if edge.From == "" || edge.To == "" {
		return newValidationError("task_id", "both task ids are required")
	}
	if edge.From == edge.To {
		if edge.Kind == ir.EdgePrerequisite {
			return newCycleError(edge.From, edge.To, []string{edge.From, edge.To})
		}
		return newValidationError("to", "a task cannot be linked to itself")
	}
	return nil
}

// touchTask bumps version and updated_at on t.
func touchTask(ctx context.Context, tx *store.Tx, t *ir.Task, now time.Time) error {
	if err := tx.TouchTask(ctx, t.ID, t.Version, now); err != nil {
		return mapStoreError(err, "task", t.ID)
	}
	t.Version++
	t.UpdatedAt = now
	return nil
}
