package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Op: OpTransition, Task: "a", Outcome: "BLOCKED_BY_PREREQUISITE"},
		{Seq: 2, Op: OpLogTime, Task: "b", Outcome: OutcomeOK},
		{Seq: 3, Op: OpTransition, Task: "b", Outcome: OutcomeOK},
		{Seq: 4, Op: OpDelegate, Task: "b", Outcome: OutcomeOK},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Op: OpTransition}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Op: OpTransition, Task: "b"}))

	err := assertTraceContains(trace, Assertion{Op: OpTransition, Task: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "successful transition on a")

	assert.Error(t, assertTraceContains(trace, Assertion{Op: OpTick}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{OpTransition, OpLogTime, OpDelegate}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{OpTransition, OpDelegate}}))

	err := assertTraceOrder(trace, Assertion{Ops: []string{OpDelegate, OpLogTime}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Ops: []string{OpTick}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing op: tick")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpTransition, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: OpTick, Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Op: OpTransition, Count: 1}))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of tick",
		Actual:   "0 occurrences",
		Trace:    sampleTrace(),
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of tick")
	assert.Contains(t, msg, "[4] delegate b ok")
}

func TestEvaluateAssertions_StateRequiresContext(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertTraceCount, Op: OpTick, Count: 0},
		{Type: AssertTaskStatus, Task: "a", Status: "pending"},
	}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires engine context")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"status": "pending", "id": "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "id = ? AND status = ?", sql)
	assert.Equal(t, []any{"t-1", "pending"}, args)

	_, _, err = buildWhereClause(map[string]any{"id; DROP TABLE tasks": "x"})
	assert.Error(t, err)

	sql, args, err = buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"int vs int64", 2, int64(2), true},
		{"int vs float64", 50, float64(50), true},
		{"float vs float", 2.5, 2.5, true},
		{"float mismatch", 2.5, 2.0, false},
		{"string", "alice", "alice", true},
		{"string vs bytes", "alice", []byte("alice"), true},
		{"string mismatch", "alice", "bob", false},
		{"bool vs sqlite int", true, int64(1), true},
		{"bool false vs sqlite int", false, int64(1), false},
		{"number vs string", 1, "1", false},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}
