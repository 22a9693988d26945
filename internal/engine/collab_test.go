package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Discussed")

	c, err := f.eng.AddComment(ctx, bob, task.ID, "  looks good  ")
	require.NoError(t, err)
	assert.Equal(t, "looks good", c.Body)
	assert.Equal(t, "bob", c.Actor)

	comments, err := f.eng.ListComments(ctx, alice, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, c.ID, comments[0].ID)

	assert.Equal(t, []ir.Action{ir.ActionCreated, ir.ActionCommented}, f.actions(t, task.ID))

	got, err := f.eng.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Version, got.Version, "comments do not bump the version")

	_, err = f.eng.AddComment(ctx, bob, task.ID, "   ")
	assert.True(t, IsValidation(err))
	_, err = f.eng.AddComment(ctx, mallory, task.ID, "hi")
	assert.True(t, IsNotFound(err))
}

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "With files")

	a, err := f.eng.AddAttachment(ctx, alice, task.ID, AttachmentUpload{
		Name:        "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Size)
	assert.Nil(t, a.Data)

	list, err := f.eng.ListAttachments(ctx, alice, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "notes.txt", list[0].Name)

	dl, err := f.eng.DownloadAttachment(ctx, bob, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), dl.Data)

	_, err = f.eng.DownloadAttachment(ctx, mallory, a.ID)
	assert.True(t, IsNotFound(err))
	_, err = f.eng.DownloadAttachment(ctx, alice, "missing")
	assert.True(t, IsNotFound(err))

	_, err = f.eng.AddAttachment(ctx, alice, task.ID, AttachmentUpload{Name: " "})
	assert.True(t, IsValidation(err))

	last := f.history(t, task.ID)
	assert.Equal(t, "attached notes.txt", last[len(last)-1].Description)
}

func TestCreateTaskWithAttachments_UploadFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eng.CreateTaskWithAttachments(ctx, alice, ir.Task{Title: "Upload"}, []AttachmentUpload{
		{Name: "ok.txt", Data: []byte("ok")},
		{Name: "huge.bin", Data: bytes.Repeat([]byte{0}, MaxAttachmentSize+1)},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	require.Len(t, res.Attachments, 1)
	assert.Equal(t, "ok.txt", res.Attachments[0].Name)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "huge.bin")

	_, err = f.eng.GetTask(ctx, alice, res.Task.ID)
	assert.NoError(t, err)
}
