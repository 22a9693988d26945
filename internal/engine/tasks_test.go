package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

func TestCreateTask_StartsPendingWithOneEntry(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, "Draft spec")

	assert.Equal(t, ir.StatusPending, task.Status)
	assert.Equal(t, "org-1", task.OrganizationID)
	assert.Equal(t, "alice", task.CreatedBy)
	assert.Equal(t, ir.PriorityMedium, task.Priority)
	assert.Equal(t, ir.VisibilityTeam, task.Visibility)
	assert.Equal(t, int64(1), task.Version)
	assert.True(t, testNow.Equal(task.CreatedAt))

	history := f.history(t, task.ID)
	require.Len(t, history, 1)
	assert.Equal(t, ir.ActionCreated, history[0].Action)
	assert.Equal(t, "alice", history[0].Actor)
	assert.Equal(t, `created task "Draft spec"`, history[0].Description)
}

func TestCreateTask_IgnoresServerOwnedFields(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, "Sneaky", func(d *ir.Task) {
		d.ID = "chosen"
		d.Status = ir.StatusApproved
		d.TimeSpent = 40
		d.Version = 99
		d.RejectedBy = "bob"
	})

	assert.NotEqual(t, "chosen", task.ID)
	assert.Equal(t, ir.StatusPending, task.Status)
	assert.Zero(t, task.TimeSpent)
	assert.Equal(t, int64(1), task.Version)
	assert.Empty(t, task.RejectedBy)
}

func TestCreateTask_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.Task)
		code   Code
		field  string
	}{
		{"missing title", func(d *ir.Task) { d.Title = "   " }, CodeValidation, "title"},
		{"due before start", func(d *ir.Task) {
			d.StartDate = date("2026-03-10")
			d.DueDate = date("2026-03-09")
		}, CodeValidation, "due_date"},
		{"billable without tracking", func(d *ir.Task) { d.IsBillable = true }, CodeValidation, "is_billable"},
		{"recurring without frequency", func(d *ir.Task) {
			d.IsRecurring = true
			d.RecurringEndsOn = date("2026-12-31")
		}, CodeValidation, "recurring_frequency"},
		{"recurring without end", func(d *ir.Task) {
			d.IsRecurring = true
			d.RecurringFrequency = ir.FrequencyWeekly
		}, CodeValidation, "recurring_ends_on"},
		{"negative budget", func(d *ir.Task) { d.BudgetHours = -1 }, CodeValidation, "budget_hours"},
		{"bad priority", func(d *ir.Task) { d.Priority = "critical" }, CodeValidation, "priority"},
		{"unknown owner", func(d *ir.Task) { d.AssignedTo = "zoe" }, CodeUnknownMember, "assigned_to"},
		{"watcher from another org", func(d *ir.Task) { d.Watchers = []string{"mallory"} }, CodeUnknownMember, "watchers"},
		{"missing project", func(d *ir.Task) { d.ProjectID = "nope" }, CodeNotFound, "project_id"},
		{"missing prerequisite", func(d *ir.Task) { d.Prerequisites = []string{"nope"} }, CodeNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			draft := ir.Task{Title: "Valid"}
			tt.mutate(&draft)

			_, err := f.eng.CreateTask(context.Background(), alice, draft)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field, e.Field)

			tasks, err := f.store.ListTasks(context.Background(), store.TaskFilter{})
			require.NoError(t, err)
			assert.Empty(t, tasks, "failed create must not leave a task behind")
		})
	}
}

func TestCreateTask_RequiresActorOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.CreateTask(context.Background(), ir.Actor{MemberID: "alice"}, ir.Task{Title: "x"})
	assert.True(t, IsValidation(err))
}

func TestCreateTask_InlineRelationships(t *testing.T) {
	f := newFixture(t)
	design := f.createTask(t, "Design")
	notes := f.createTask(t, "Meeting notes")

	build := f.createTask(t, "Build", func(d *ir.Task) {
		d.Prerequisites = []string{design.ID}
		d.Linked = []string{notes.ID}
	})

	assert.Equal(t, []string{design.ID}, build.Prerequisites)
	assert.Equal(t, []string{notes.ID}, build.Linked)
	assert.Equal(t, []ir.Action{ir.ActionCreated}, f.actions(t, build.ID))

	got, err := f.eng.GetTask(context.Background(), alice, design.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{build.ID}, got.Dependents)
}

func TestGetTask_OtherOrganizationIsNotFound(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Private")

	_, err := f.eng.GetTask(context.Background(), mallory, task.ID)
	assert.True(t, IsNotFound(err))
}

func TestUpdateTask_RecordsChangedFields(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Draft")

	title := "Final draft"
	priority := ir.PriorityHigh
	tags := []string{"q2", "docs", "q2"}
	got, err := f.eng.UpdateTask(context.Background(), alice, task.ID, TaskPatch{
		Title:    &title,
		Priority: &priority,
		Tags:     &tags,
		DueDate:  date("2026-04-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Final draft", got.Title)
	assert.Equal(t, ir.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"docs", "q2"}, got.Tags)
	assert.Equal(t, "2026-04-01", got.DueDate.String())
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, ir.StatusPending, got.Status)

	history := f.history(t, task.ID)
	require.Len(t, history, 2)
	assert.Equal(t, ir.ActionUpdated, history[1].Action)
	assert.Equal(t, "updated title, priority, due_date, tags", history[1].Description)
}

func TestUpdateTask_NoChangeWritesNothing(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Same")

	title := "Same"
	got, err := f.eng.UpdateTask(context.Background(), alice, task.ID, TaskPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, f.history(t, task.ID), 1)
}

func TestUpdateTask_ClearsDate(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Dated", func(d *ir.Task) { d.DueDate = date("2026-03-20") })

	got, err := f.eng.UpdateTask(context.Background(), alice, task.ID, TaskPatch{DueDate: &ir.Date{}})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func TestUpdateTask_StaleVersionIsConflict(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Contended")
	ctx := context.Background()

	notes := "first writer"
	_, err := f.eng.UpdateTask(ctx, alice, task.ID, TaskPatch{ExpectedVersion: 1, Notes: &notes})
	require.NoError(t, err)

	notes = "second writer"
	_, err = f.eng.UpdateTask(ctx, bob, task.ID, TaskPatch{ExpectedVersion: 1, Notes: &notes})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	got, err := f.eng.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", got.Notes)
	assert.Len(t, f.history(t, task.ID), 2)
}

func TestUpdateTask_BillableInvariant(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Billable", tracked, func(d *ir.Task) { d.IsBillable = true })
	ctx := context.Background()

	off := false
	_, err := f.eng.UpdateTask(ctx, alice, task.ID, TaskPatch{TimeTrackingEnabled: &off})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	got, err := f.eng.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBillable)
	assert.True(t, got.TimeTrackingEnabled)

	got, err = f.eng.UpdateTask(ctx, alice, task.ID, TaskPatch{IsBillable: &off, TimeTrackingEnabled: &off})
	require.NoError(t, err)
	assert.False(t, got.IsBillable)
	assert.False(t, got.TimeTrackingEnabled)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTask(t, "A")
	b := f.createTask(t, "B", func(d *ir.Task) { d.Prerequisites = []string{a.ID} })

	assert.True(t, IsNotFound(f.eng.DeleteTask(ctx, mallory, a.ID)))
	require.NoError(t, f.eng.DeleteTask(ctx, alice, a.ID))

	_, err := f.eng.GetTask(ctx, alice, a.ID)
	assert.True(t, IsNotFound(err))

	got, err := f.eng.GetTask(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Prerequisites)
}

func TestListTasks_ScopedToActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.createTask(t, "Mine", func(d *ir.Task) { d.AssignedTo = "bob" })
	f.createTask(t, "Unassigned")
	_, err := f.eng.CreateTask(ctx, mallory, ir.Task{Title: "Theirs"})
	require.NoError(t, err)

	all, err := f.eng.ListTasks(ctx, alice, store.TaskFilter{OrganizationID: "org-2"})
	require.NoError(t, err)
	assert.Len(t, all, 2, "filter organization is forced to the actor's")

	bobs, err := f.eng.ListTasks(ctx, alice, store.TaskFilter{Assignee: "bob"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, mine.ID, bobs[0].ID)

	_, err = f.eng.ListTasks(ctx, alice, store.TaskFilter{Statuses: []ir.Status{"done"}})
	assert.True(t, IsValidation(err))
}

func TestListByProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.eng.CreateProject(ctx, alice, ir.Project{Name: "Launch"})
	require.NoError(t, err)
	in := f.createTask(t, "In", func(d *ir.Task) { d.ProjectID = p.ID })
	f.createTask(t, "Out")

	tasks, err := f.eng.ListByProject(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, in.ID, tasks[0].ID)

	_, err = f.eng.ListByProject(ctx, mallory, p.ID)
	assert.True(t, IsNotFound(err))
}
