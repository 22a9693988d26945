package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
	"github.com/roach88/taskflow/internal/testutil"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var (
	alice   = ir.Actor{MemberID: "alice", OrganizationID: "org-1"}
	bob     = ir.Actor{MemberID: "bob", OrganizationID: "org-1"}
	mallory = ir.Actor{MemberID: "mallory", OrganizationID: "org-2"}
)

type fixture struct {
	eng   *Engine
	store *store.Store
	clock *testutil.FixedClock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture creates an engine on a temp-dir store with a frozen clock,
// sequential ids and members alice, bob, carol (org-1) and mallory (org-2).
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFixedClock(testNow)
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequenceGenerator("id")),
		WithNotifier(NopNotifier{}),
		WithLogger(discardLogger()),
	}
	eng := New(st, append(base, opts...)...)

	ctx := context.Background()
	for _, m := range []ir.TeamMember{
		{ID: "alice", OrganizationID: "org-1", Name: "Alice"},
		{ID: "bob", OrganizationID: "org-1", Name: "Bob"},
		{ID: "carol", OrganizationID: "org-1", Name: "Carol"},
		{ID: "mallory", OrganizationID: "org-2", Name: "Mallory"},
	} {
		m.CreatedAt = testNow
		require.NoError(t, st.InsertMember(ctx, m))
	}
	return &fixture{eng: eng, store: st, clock: clock}
}

// createTask creates a task as alice. mutate adjusts the draft first.
func (f *fixture) createTask(t *testing.T, title string, mutate ...func(*ir.Task)) *ir.Task {
	t.Helper()
	draft := ir.Task{Title: title}
	for _, m := range mutate {
		m(&draft)
	}
	task, err := f.eng.CreateTask(context.Background(), alice, draft)
	require.NoError(t, err)
	return task
}

// moveTo applies transitions in order and fails the test on any error.
// Rejections carry a fixed reason.
func (f *fixture) moveTo(t *testing.T, taskID string, path ...ir.Status) *ir.Task {
	t.Helper()
	var task *ir.Task
	for _, to := range path {
		req := TransitionRequest{TaskID: taskID, To: to}
		if to == ir.StatusRejected {
			req.Reason = "needs rework"
		}
		res, err := f.eng.Transition(context.Background(), alice, req)
		require.NoError(t, err, "transition to %s", to)
		task = res.Task
	}
	return task
}

func (f *fixture) history(t *testing.T, taskID string) []ir.HistoryEntry {
	t.Helper()
	entries, err := f.store.ListHistory(context.Background(), taskID)
	require.NoError(t, err)
	return entries
}

func (f *fixture) actions(t *testing.T, taskID string) []ir.Action {
	t.Helper()
	var out []ir.Action
	for _, e := range f.history(t, taskID) {
		out = append(out, e.Action)
	}
	return out
}

func tracked(task *ir.Task) {
	task.TimeTrackingEnabled = true
}

func date(s string) *ir.Date {
	return ir.DatePtr(ir.MustParseDate(s))
}
