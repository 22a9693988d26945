package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

func tasksWith(statuses ...ir.Status) []*ir.Task {
	out := make([]*ir.Task, len(statuses))
	for i, s := range statuses {
		out[i] = &ir.Task{Status: s}
	}
	return out
}

func TestComputeStats_Progress(t *testing.T) {
	today := ir.MustParseDate("2026-03-02")

	s := ComputeStats(nil, tasksWith(ir.StatusCompleted, ir.StatusApproved, ir.StatusPending, ir.StatusInProgress), today)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 50, s.ProgressPct)

	empty := ComputeStats(nil, nil, today)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.ProgressPct)
}

func TestComputeStats_RoundsHalfAwayFromZero(t *testing.T) {
	statuses := []ir.Status{ir.StatusCompleted}
	for i := 0; i < 7; i++ {
		statuses = append(statuses, ir.StatusPending)
	}
	s := ComputeStats(nil, tasksWith(statuses...), ir.MustParseDate("2026-03-02"))
	assert.Equal(t, 13, s.ProgressPct, "1/8 = 12.5%% rounds up")

	s = ComputeStats(nil, tasksWith(ir.StatusCompleted, ir.StatusPending, ir.StatusPending), ir.MustParseDate("2026-03-02"))
	assert.Equal(t, 33, s.ProgressPct)
}

func TestComputeStats_OverdueAndHours(t *testing.T) {
	today := ir.MustParseDate("2026-03-02")
	tasks := []*ir.Task{
		{Status: ir.StatusPending, DueDate: date("2026-03-01"), EstimatedHours: 2, TimeSpent: 1},
		{Status: ir.StatusOnHold, DueDate: date("2026-02-01")},
		{Status: ir.StatusCompleted, DueDate: date("2026-02-01"), EstimatedHours: 3, TimeSpent: 4},
		{Status: ir.StatusRejected, DueDate: date("2026-02-01")},
		{Status: ir.StatusReview, DueDate: date("2026-03-02")},
	}

	s := ComputeStats(nil, tasks, today)
	assert.Equal(t, 2, s.Overdue)
	assert.Equal(t, 1, s.OnHold)
	assert.Equal(t, 1, s.Review)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 5.0, s.EstimatedHours)
	assert.Equal(t, 5.0, s.TimeSpent)
}

func TestTimelinePct(t *testing.T) {
	start, end := date("2026-03-01"), date("2026-03-11")
	tests := []struct {
		today string
		want  int
	}{
		{"2026-02-28", 0},
		{"2026-03-01", 0},
		{"2026-03-06", 50},
		{"2026-03-11", 100},
		{"2026-03-12", 100},
	}
	for _, tt := range tests {
		t.Run(tt.today, func(t *testing.T) {
			assert.Equal(t, tt.want, timelinePct(start, end, ir.MustParseDate(tt.today)))
		})
	}

	assert.Equal(t, 0, timelinePct(nil, end, ir.MustParseDate("2026-03-06")))
	assert.Equal(t, 100, timelinePct(start, start, ir.MustParseDate("2026-03-01")))
}

func TestStatsFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.eng.CreateProject(ctx, alice, ir.Project{
		Name:      "Launch",
		StartDate: date("2026-02-20"),
		EndDate:   date("2026-03-12"),
	})
	require.NoError(t, err)

	inProject := func(d *ir.Task) { d.ProjectID = p.ID }
	ids := make([]string, 4)
	for i := range ids {
		ids[i] = f.createTask(t, "Task", inProject).ID
	}
	f.createTask(t, "Elsewhere")
	f.moveTo(t, ids[0], ir.StatusInProgress, ir.StatusCompleted)
	f.moveTo(t, ids[1], ir.StatusInProgress, ir.StatusCompleted, ir.StatusApproved)
	f.moveTo(t, ids[2], ir.StatusInProgress)

	s, err := f.eng.StatsFor(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, s.ProjectID)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 50, s.ProgressPct)
	assert.Equal(t, 50, s.TimelinePct)

	_, err = f.eng.StatsFor(ctx, mallory, p.ID)
	assert.True(t, IsNotFound(err))
}

func TestProjectProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Beta", "Alpha"} {
		_, err := f.eng.CreateProject(ctx, alice, ir.Project{Name: name})
		require.NoError(t, err)
	}
	_, err := f.eng.CreateProject(ctx, mallory, ir.Project{Name: "Gamma"})
	require.NoError(t, err)

	all, err := f.eng.ProjectProgress(ctx, alice)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].ProjectName)
	assert.Equal(t, "Beta", all[1].ProjectName)
}
