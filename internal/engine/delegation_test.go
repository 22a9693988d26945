package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

func TestDelegate_Scenario(t *testing.T) {
	var sent []Notification
	notifier := NotifierFunc(func(_ context.Context, n Notification) error {
		sent = append(sent, n)
		return nil
	})
	f := newFixture(t, WithNotifier(notifier))
	ctx := context.Background()
	task := f.createTask(t, "Hand off", func(d *ir.Task) { d.AssignedTo = "alice" })
	f.moveTo(t, task.ID, ir.StatusInProgress)

	res, err := f.eng.Delegate(ctx, alice, DelegateRequest{TaskID: task.ID, To: "carol", Notes: "you own this now"})
	require.NoError(t, err)

	assert.Equal(t, "carol", res.Task.AssignedTo)
	assert.Equal(t, "alice", res.Task.DelegatedBy)
	assert.Equal(t, "you own this now", res.Task.DelegationNotes)
	require.NotNil(t, res.Task.DelegationDate)
	assert.True(t, testNow.Equal(*res.Task.DelegationDate))
	assert.Equal(t, ir.StatusInProgress, res.Task.Status, "delegation never changes status")
	assert.Equal(t, "alice", res.Previous)
	assert.Empty(t, res.Warnings)

	history := f.history(t, task.ID)
	delegated := 0
	for _, e := range history {
		if e.Action == ir.ActionDelegated {
			delegated++
			assert.Equal(t, "delegated from alice to carol: you own this now", e.Description)
		}
	}
	assert.Equal(t, 1, delegated)

	require.Len(t, sent, 1)
	assert.Equal(t, "carol", sent[0].Recipient)
	assert.Equal(t, task.ID, sent[0].TaskID)
}

func TestDelegate_KeepsOnlyLatestMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Pass it on")

	_, err := f.eng.Delegate(ctx, alice, DelegateRequest{TaskID: task.ID, To: "bob", Notes: "first"})
	require.NoError(t, err)
	res, err := f.eng.Delegate(ctx, bob, DelegateRequest{TaskID: task.ID, To: "carol"})
	require.NoError(t, err)

	assert.Equal(t, "carol", res.Task.AssignedTo)
	assert.Equal(t, "bob", res.Task.DelegatedBy)
	assert.Empty(t, res.Task.DelegationNotes)
	assert.Equal(t, []ir.Action{ir.ActionCreated, ir.ActionDelegated, ir.ActionDelegated}, f.actions(t, task.ID))
}

func TestDelegate_UnknownMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Orphan")

	for _, to := range []string{"zoe", "mallory"} {
		_, err := f.eng.Delegate(ctx, alice, DelegateRequest{TaskID: task.ID, To: to})
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeUnknownMember), to)
	}

	got, err := f.eng.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTo)
	assert.Len(t, f.history(t, task.ID), 1)
}

func TestDelegate_NotifierFailureIsWarning(t *testing.T) {
	failing := NotifierFunc(func(context.Context, Notification) error {
		return errors.New("smtp down")
	})
	f := newFixture(t, WithNotifier(failing))
	task := f.createTask(t, "Loud")

	res, err := f.eng.Delegate(context.Background(), alice, DelegateRequest{TaskID: task.ID, To: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", res.Task.AssignedTo)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "smtp down")
}

func TestDelegate_StaleVersion(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "Old copy")
	f.moveTo(t, task.ID, ir.StatusInProgress)

	_, err := f.eng.Delegate(context.Background(), alice, DelegateRequest{TaskID: task.ID, To: "bob", ExpectedVersion: 1})
	assert.True(t, IsConflict(err))
}

func TestLogNotifier(t *testing.T) {
	n := &LogNotifier{Logger: discardLogger()}
	assert.NoError(t, n.Notify(context.Background(), Notification{Kind: "delegated"}))
	assert.NoError(t, NopNotifier{}.Notify(context.Background(), Notification{}))
}
