package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_ScenarioFiles(t *testing.T) {
	for _, name := range []string{"approval_flow", "recurrence_and_graph"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
			assert.Len(t, result.Trace, len(s.Flow))
		})
	}
}

func TestRun_Minimal(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, 1, ev.Seq)
	assert.Equal(t, OpTransition, ev.Op)
	assert.Equal(t, "alice", ev.Actor)
	assert.Equal(t, "a", ev.Task)
	assert.Equal(t, OutcomeOK, ev.Outcome)
	assert.Equal(t, "in_progress", ev.Status)
	assert.Equal(t, "pending -> in_progress", ev.Detail)
	assert.Equal(t, map[string]string{"a": "in_progress"}, result.Final)
}

func TestRun_UnexpectedOutcomeFails(t *testing.T) {
	result, err := Run(mustParse(t, `
name: wrong_outcome
members: [{id: alice}]
tasks: [{key: a, title: A}]
flow:
  - transition: {task: a, to: approved}
assertions:
  - type: task_status
    task: a
    status: pending
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected outcome ok, got INVALID_TRANSITION")
	assert.Equal(t, "INVALID_TRANSITION", result.Trace[0].Outcome)
}

func TestRun_ExpectedStatusAndWarnings(t *testing.T) {
	result, err := Run(mustParse(t, `
name: expectations
members: [{id: alice}, {id: bob}]
tasks: [{key: a, title: A}]
flow:
  - transition: {task: a, to: on_hold}
    expect: {outcome: ok, status: review}
  - delegate: {task: a, to: bob}
    expect: {outcome: ok, warnings: 1}
assertions:
  - type: task_status
    task: a
    status: on_hold
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected status review, got on_hold")
	assert.Contains(t, result.Errors[1], "expected 1 warnings, got 0")
}

func TestRun_FailedAssertion(t *testing.T) {
	result, err := Run(mustParse(t, `
name: failed_assertion
members: [{id: alice}]
tasks: [{key: a, title: A, time_tracking: true}]
flow:
  - log_time: {task: a, hours: 1.25}
assertions:
  - type: time_spent
    task: a
    hours: 2
  - type: history_actions
    task: a
    actions: [created]
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "spent 2h")
	assert.Contains(t, result.Errors[0], "1.25h")
	assert.Contains(t, result.Errors[1], "[created time_logged]")
	assert.Equal(t, "+1.25h, spent 1.25h", result.Trace[0].Detail)
}

func TestRun_PrerequisiteGateDisabled(t *testing.T) {
	result, err := Run(mustParse(t, `
name: gate_off
enforce_prerequisites: false
members: [{id: alice}]
tasks:
  - {key: a, title: A}
  - {key: b, title: B, prerequisites: [a]}
flow:
  - transition: {task: b, to: in_progress}
assertions:
  - type: task_status
    task: b
    status: in_progress
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_UnknownTaskIsNotFound(t *testing.T) {
	result, err := Run(mustParse(t, `
name: unknown_task
members: [{id: alice}]
flow:
  - transition: {task: ghost, to: in_progress}
    expect: {outcome: NOT_FOUND}
assertions:
  - type: task_count
    count: 0
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_SetupErrorIsReturned(t *testing.T) {
	_, err := Run(mustParse(t, `
name: bad_setup
members: [{id: alice}]
tasks: [{key: a, title: A, assigned_to: nobody}]
flow: [{tick: {}}]
assertions: [{type: task_count}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task a")
}

func TestRun_TickSpawnsMissedSuccessor(t *testing.T) {
	result, err := Run(mustParse(t, `
name: tick_catch_up
now: 2026-03-02T09:00:00Z
members: [{id: alice}]
tasks:
  - {key: r, title: Daily, recurring: daily, recurring_until: "2026-12-31"}
flow:
  - transition: {task: r, to: in_progress}
  - transition: {task: r, to: completed}
  - tick: {}
assertions:
  - type: task_count
    count: 2
  - type: trace_contains
    op: tick
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "in_progress -> completed, spawned r+next", result.Trace[1].Detail)
	assert.Equal(t, "spawned 0", result.Trace[2].Detail)
	assert.Equal(t, "pending", result.Final["r+next"])
}
