package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

const minimalScenario = `
name: minimal
members:
  - {id: alice}
tasks:
  - {key: a, title: A}
flow:
  - transition: {task: a, to: in_progress}
assertions:
  - type: task_status
    task: a
    status: in_progress
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "approval_flow.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "approval_flow", s.Name)
	assert.Equal(t, "acme", s.Organization)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), s.Now.UTC())
	require.Len(t, s.Members, 2)
	require.Len(t, s.Tasks, 2)
	assert.Equal(t, []string{"design"}, s.Tasks[1].Prerequisites)

	require.Len(t, s.Flow, 10)
	first := s.Flow[0]
	require.NotNil(t, first.Transition)
	assert.Equal(t, ir.StatusInProgress, first.Transition.To)
	require.NotNil(t, first.Expect)
	assert.Equal(t, "BLOCKED_BY_PREREQUISITE", first.Expect.Outcome)

	assert.Equal(t, "bob", s.Flow[2].As)
	require.NotNil(t, s.Flow[2].LogTime)
	assert.Equal(t, 2.5, s.Flow[2].LogTime.Hours)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.True(t, s.Now.IsZero())
	assert.Empty(t, s.Organization)
	assert.Equal(t, 1, s.Flow[0].operationCount())
}

func TestParseScenario_TickAndAdvance(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: clock
members: [{id: alice}]
flow:
  - advance: 48h
  - tick: {}
assertions:
  - type: task_count
    count: 0
`))
	require.NoError(t, err)
	assert.Equal(t, "48h", s.Flow[0].Advance)
	assert.NotNil(t, s.Flow[1].Tick)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\nmembers: [{id: a}]\nflw: []\n",
			wantErr: "field flw not found",
		},
		{
			name:    "missing name",
			yaml:    "members: [{id: a}]\nflow: [{tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "no members",
			yaml:    "name: x\nflow: [{tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: "members list is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: x\nmembers: [{id: a}]\nassertions: [{type: task_count}]\n",
			wantErr: "flow is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "two operations in one step",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}, advance: 1h}]\nassertions: [{type: task_count}]\n",
			wantErr: "exactly one operation",
		},
		{
			name:    "no operation in step",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{as: a}]\nassertions: [{type: task_count}]\n",
			wantErr: "exactly one operation",
		},
		{
			name:    "unknown actor",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{as: z, tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: `unknown member "z"`,
		},
		{
			name:    "bad duration",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{advance: soon}]\nassertions: [{type: task_count}]\n",
			wantErr: "advance",
		},
		{
			name:    "expect without outcome",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}, expect: {status: pending}}]\nassertions: [{type: task_count}]\n",
			wantErr: "outcome is required",
		},
		{
			name:    "forward prerequisite",
			yaml:    "name: x\nmembers: [{id: a}]\ntasks: [{key: t1, title: T, prerequisites: [t2]}, {key: t2, title: U}]\nflow: [{tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: "must be declared earlier",
		},
		{
			name:    "duplicate task key",
			yaml:    "name: x\nmembers: [{id: a}]\ntasks: [{key: t1, title: T}, {key: t1, title: U}]\nflow: [{tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: "duplicate key",
		},
		{
			name:    "unknown project",
			yaml:    "name: x\nmembers: [{id: a}]\ntasks: [{key: t1, title: T, project: p}]\nflow: [{tick: {}}]\nassertions: [{type: task_count}]\n",
			wantErr: `unknown project "p"`,
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "task_status without status",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}}]\nassertions: [{type: task_status, task: t}]\n",
			wantErr: "task and status are required",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: x\nmembers: [{id: a}]\nflow: [{tick: {}}]\nassertions: [{type: final_state, table: tasks}]\n",
			wantErr: "expect is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScenarioFilesParse(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			data, err := os.ReadFile(f)
			require.NoError(t, err)
			_, err = ParseScenario(data)
			assert.NoError(t, err)
		})
	}
}
