package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTask builds a pending task with minimal required fields.
func createTestTask(id, orgID string) *ir.Task {
	return &ir.Task{
		ID:             id,
		OrganizationID: orgID,
		Title:          "Task " + id,
		Status:         ir.StatusPending,
		Priority:       ir.PriorityMedium,
		Visibility:     ir.VisibilityTeam,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
		Version:        1,
	}
}

// insertTestTask writes a task and fails the test on error.
func insertTestTask(t *testing.T, s *Store, task *ir.Task) {
	t.Helper()
	require.NoError(t, s.InsertTask(context.Background(), task))
}
