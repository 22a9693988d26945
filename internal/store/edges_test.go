package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

func TestEdges_PrerequisiteViews(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		insertTestTask(t, s, createTestTask(id, "org-1"))
	}

	inserted, err := s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: "a", To: "b"}, testNow)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: "a", To: "b"}, testNow)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate edge must not insert")

	_, err = s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: "c", To: "a"}, testNow)
	require.NoError(t, err)

	a, err := s.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, a.Dependents)
	assert.Empty(t, a.Prerequisites)
	assert.Equal(t, []string{"c"}, a.Linked)

	b, err := s.GetTask(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, b.Prerequisites)
	assert.Empty(t, b.Dependents)

	c, err := s.GetTask(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.Linked)
}

func TestEdges_LinkedIsSymmetricOnDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertTestTask(t, s, createTestTask("a", "org-1"))
	insertTestTask(t, s, createTestTask("b", "org-1"))

	_, err := s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: "a", To: "b"}, testNow)
	require.NoError(t, err)

	inserted, err := s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: "b", To: "a"}, testNow)
	require.NoError(t, err)
	assert.False(t, inserted, "reverse linked edge is the same edge")

	require.NoError(t, s.DeleteEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: "b", To: "a"}))
	assert.ErrorIs(t, s.DeleteEdge(ctx, ir.Edge{Kind: ir.EdgeLinked, From: "a", To: "b"}), ErrNotFound)
}

func TestPrerequisiteEdges_ScopedToOrganization(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertTestTask(t, s, createTestTask("a", "org-1"))
	insertTestTask(t, s, createTestTask("b", "org-1"))
	insertTestTask(t, s, createTestTask("x", "org-2"))
	insertTestTask(t, s, createTestTask("y", "org-2"))

	_, err := s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: "a", To: "b"}, testNow)
	require.NoError(t, err)
	_, err = s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: "x", To: "y"}, testNow)
	require.NoError(t, err)

	edges, err := s.PrerequisiteEdges(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []ir.Edge{{Kind: ir.EdgePrerequisite, From: "a", To: "b"}}, edges)
}

func TestUnresolvedPrerequisites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	done := createTestTask("done", "org-1")
	done.Status = ir.StatusApproved
	open := createTestTask("open", "org-1")
	target := createTestTask("target", "org-1")
	for _, task := range []*ir.Task{done, open, target} {
		insertTestTask(t, s, task)
	}
	for _, from := range []string{"done", "open"} {
		_, err := s.InsertEdge(ctx, ir.Edge{Kind: ir.EdgePrerequisite, From: from, To: "target"}, testNow)
		require.NoError(t, err)
	}

	blocking, err := s.UnresolvedPrerequisites(ctx, "target")
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, "open", blocking[0].ID)
}
