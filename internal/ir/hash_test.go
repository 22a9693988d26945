package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry() HistoryEntry {
	return HistoryEntry{
		ID:          "h-1",
		TaskID:      "task-1",
		Seq:         1,
		Actor:       "alice",
		Action:      ActionCreated,
		Description: "created task",
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestHistoryHash_Deterministic(t *testing.T) {
	h1, err := HistoryHash(testEntry())
	require.NoError(t, err)
	h2, err := HistoryHash(testEntry())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHistoryHash_IgnoresIDAndZone(t *testing.T) {
	base, err := HistoryHash(testEntry())
	require.NoError(t, err)

	e := testEntry()
	e.ID = "another-id"
	e.CreatedAt = e.CreatedAt.In(time.FixedZone("CET", 3600))
	other, err := HistoryHash(e)
	require.NoError(t, err)

	assert.Equal(t, base, other)
}

func TestHistoryHash_ChainsOnPrevHash(t *testing.T) {
	base, err := HistoryHash(testEntry())
	require.NoError(t, err)

	e := testEntry()
	e.PrevHash = base
	chained, err := HistoryHash(e)
	require.NoError(t, err)
	assert.NotEqual(t, base, chained)

	e.Description = "tampered"
	tampered, err := HistoryHash(e)
	require.NoError(t, err)
	assert.NotEqual(t, chained, tampered)
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("archived").Valid())
	assert.True(t, StatusApproved.Done())
	assert.False(t, StatusReview.Done())
}
