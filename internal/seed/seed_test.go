package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
	"github.com/roach88/taskflow/internal/testutil"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return engine.New(st,
		engine.WithClock(testutil.NewFixedClock(testNow)),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("id")),
		engine.WithNotifier(engine.NopNotifier{}),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestLoad_File(t *testing.T) {
	fx, err := Load(filepath.Join("testdata", "acme.cue"))
	require.NoError(t, err)

	assert.Equal(t, "acme", fx.Organization)
	assert.Equal(t, "alice", fx.SeededBy)
	assert.Len(t, fx.Members, 2)
	assert.Equal(t, "Website relaunch", fx.Projects["web"].Name)
	require.Len(t, fx.Tasks, 4)
	assert.Equal(t, 6.5, fx.Tasks["design"].TimeLogged)
	assert.Equal(t, []string{"design"}, fx.Tasks["build"].Prerequisites)
	require.NotNil(t, fx.Tasks["standup"].Recurring)
	assert.Equal(t, "weekly", fx.Tasks["standup"].Recurring.Frequency)
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_org.cue"),
		[]byte(`organization: "split"`+"\n"+`member: dana: name: "Dana"`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_tasks.cue"),
		[]byte(`task: t1: {title: "One", assigned_to: "dana"}`+"\n"), 0o644))

	fx, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "split", fx.Organization)
	assert.Equal(t, "dana", fx.Tasks["t1"].AssignedTo)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing organization", `task: a: title: "A"`},
		{"missing title", `organization: "o"` + "\n" + `task: a: priority: "low"`},
		{"empty title", `organization: "o"` + "\n" + `task: a: title: ""`},
		{"unknown priority", `organization: "o"` + "\n" + `task: a: {title: "A", priority: "extreme"}`},
		{"malformed date", `organization: "o"` + "\n" + `task: a: {title: "A", due_date: "03/01/2026"}`},
		{"negative hours", `organization: "o"` + "\n" + `task: a: {title: "A", estimated_hours: -1}`},
		{"unknown frequency", `organization: "o"` + "\n" + `task: a: {title: "A", recurring: {frequency: "hourly", ends_on: "2026-12-31"}}`},
		{"syntax error", `organization: "o`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("fixture.cue", []byte(tt.src))
			require.Error(t, err)
			var seedErr *Error
			assert.True(t, errors.As(err, &seedErr), "got %T: %v", err, err)
		})
	}
}

func TestParse_UnknownReferences(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"project", `task: a: {title: "A", project: "nope"}`, "task.a.project"},
		{"prerequisite", `task: a: {title: "A", prerequisites: ["ghost"]}`, "task.a.prerequisites"},
		{"linked", `task: a: {title: "A", linked: ["ghost"]}`, "task.a.linked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("fixture.cue", []byte(`organization: "o"`+"\n"+tt.src))
			var seedErr *Error
			require.True(t, errors.As(err, &seedErr))
			assert.Equal(t, tt.field, seedErr.Field)
		})
	}
}

func TestTaskOrder(t *testing.T) {
	order, err := taskOrder(map[string]Task{
		"c": {Prerequisites: []string{"a", "b"}},
		"b": {Prerequisites: []string{"a"}},
		"a": {},
		"d": {},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	_, err = taskOrder(map[string]Task{
		"x": {Prerequisites: []string{"y"}},
		"y": {Prerequisites: []string{"x"}},
		"z": {},
	})
	var seedErr *Error
	require.True(t, errors.As(err, &seedErr))
	assert.Contains(t, seedErr.Message, "x, y")
}

func TestStatusPath(t *testing.T) {
	tests := []struct {
		to   ir.Status
		want []ir.Status
	}{
		{ir.StatusPending, nil},
		{ir.StatusInProgress, []ir.Status{ir.StatusInProgress}},
		{ir.StatusReview, []ir.Status{ir.StatusReview}},
		{ir.StatusOnHold, []ir.Status{ir.StatusOnHold}},
		{ir.StatusCompleted, []ir.Status{ir.StatusInProgress, ir.StatusCompleted}},
		{ir.StatusApproved, []ir.Status{ir.StatusInProgress, ir.StatusCompleted, ir.StatusApproved}},
		{ir.StatusRejected, []ir.Status{ir.StatusInProgress, ir.StatusCompleted, ir.StatusRejected}},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusPath(ir.StatusPending, tt.to))
		})
	}
	assert.Nil(t, StatusPath(ir.StatusApproved, ir.StatusPending))
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	fx, err := Load(filepath.Join("testdata", "acme.cue"))
	require.NoError(t, err)

	res, err := Apply(ctx, eng, fx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, res.Members)
	require.Len(t, res.Tasks, 4)

	actor := ir.Actor{MemberID: "alice", OrganizationID: "acme"}
	get := func(key string) *ir.Task {
		task, err := eng.GetTask(ctx, actor, res.Tasks[key])
		require.NoError(t, err)
		return task
	}

	design := get("design")
	assert.Equal(t, ir.StatusApproved, design.Status)
	assert.Equal(t, 6.5, design.TimeSpent)
	assert.Equal(t, "alice", design.ApprovedBy)
	assert.Equal(t, []string{"design", "ui"}, design.Tags)
	assert.Equal(t, []string{res.Tasks["review"]}, design.Linked)

	build := get("build")
	assert.Equal(t, ir.StatusInProgress, build.Status)
	assert.Equal(t, []string{res.Tasks["design"]}, build.Prerequisites)

	review := get("review")
	assert.Equal(t, ir.StatusPending, review.Status)
	assert.Equal(t, []string{res.Tasks["build"]}, review.Prerequisites)

	assert.Equal(t, ir.StatusCompleted, get("standup").Status)
	all, err := eng.ListTasks(ctx, actor, store.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5, "the completed weekly task spawns its next occurrence")

	for key, id := range res.Tasks {
		assert.NoError(t, eng.VerifyHistory(ctx, actor, id), key)
	}

	stats, err := eng.StatsFor(ctx, actor, res.Projects["web"])
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 33, stats.ProgressPct)
}

func TestApply_KeepsExistingMembers(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	fx, err := Parse("fixture.cue", []byte(`
organization: "o"
member: lee: name: "Lee"
task: a: {title: "A", assigned_to: "lee"}
`))
	require.NoError(t, err)

	first, err := Apply(ctx, eng, fx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lee"}, first.Members)

	second, err := Apply(ctx, eng, fx)
	require.NoError(t, err)
	assert.Empty(t, second.Members)
	assert.NotEqual(t, first.Tasks["a"], second.Tasks["a"])
}

func TestApply_UnknownMemberStops(t *testing.T) {
	eng := newEngine(t)
	fx, err := Parse("fixture.cue", []byte(`
organization: "o"
task: a: {title: "A", assigned_to: "nobody"}
`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), eng, fx)
	assert.True(t, engine.HasCode(err, engine.CodeUnknownMember))
}
