package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/taskflow/internal/ir"
)

// DefaultNow is the scenario clock when a scenario does not set now.
var DefaultNow = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// DefaultOrganization is used when a scenario does not name one.
const DefaultOrganization = "org-1"

// Scenario defines a workflow scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the initial clock. Advance steps move it forward.
	Now time.Time `yaml:"now,omitempty"`

	Organization string `yaml:"organization,omitempty"`

	// EnforcePrerequisites overrides the engine's prerequisite gate.
	EnforcePrerequisites *bool `yaml:"enforce_prerequisites,omitempty"`

	Members  []MemberSpec  `yaml:"members"`
	Projects []ProjectSpec `yaml:"projects,omitempty"`
	Tasks    []TaskSpec    `yaml:"tasks,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

type MemberSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type ProjectSpec struct {
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	StartDate string `yaml:"start_date,omitempty"`
	EndDate   string `yaml:"end_date,omitempty"`
}

// TaskSpec is a task created before the flow runs, by the first member.
type TaskSpec struct {
	Key            string   `yaml:"key"`
	Title          string   `yaml:"title"`
	Project        string   `yaml:"project,omitempty"`
	AssignedTo     string   `yaml:"assigned_to,omitempty"`
	Approvers      []string `yaml:"approvers,omitempty"`
	StartDate      string   `yaml:"start_date,omitempty"`
	DueDate        string   `yaml:"due_date,omitempty"`
	EstimatedHours float64  `yaml:"estimated_hours,omitempty"`
	BudgetHours    float64  `yaml:"budget_hours,omitempty"`
	TimeTracking   bool     `yaml:"time_tracking,omitempty"`
	Billable       bool     `yaml:"billable,omitempty"`
	Recurring      string   `yaml:"recurring,omitempty"`
	RecurringUntil string   `yaml:"recurring_until,omitempty"`
	Prerequisites  []string `yaml:"prerequisites,omitempty"`
}

// FlowStep is one operation. Exactly one operation field is set.
type FlowStep struct {
	// As is the acting member. Defaults to the first member.
	As string `yaml:"as,omitempty"`

	Transition      *TransitionStep `yaml:"transition,omitempty"`
	Delegate        *DelegateStep   `yaml:"delegate,omitempty"`
	LogTime         *LogTimeStep    `yaml:"log_time,omitempty"`
	AddPrerequisite *EdgeStep       `yaml:"add_prerequisite,omitempty"`
	AddLinked       *EdgeStep       `yaml:"add_linked,omitempty"`
	RemoveEdge      *EdgeStep       `yaml:"remove_edge,omitempty"`
	Update          *UpdateStep     `yaml:"update,omitempty"`
	Comment         *CommentStep    `yaml:"comment,omitempty"`
	Tick            *TickStep       `yaml:"tick,omitempty"`
	Advance         string          `yaml:"advance,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

type TransitionStep struct {
	Task   string    `yaml:"task"`
	To     ir.Status `yaml:"to"`
	Reason string    `yaml:"reason,omitempty"`
}

type DelegateStep struct {
	Task  string `yaml:"task"`
	To    string `yaml:"to"`
	Notes string `yaml:"notes,omitempty"`
}

type LogTimeStep struct {
	Task        string  `yaml:"task"`
	Hours       float64 `yaml:"hours"`
	Description string  `yaml:"description,omitempty"`
}

// EdgeStep names both ends of an edge. For prerequisites, Task depends on
// Other. For links the direction is Task to Other.
type EdgeStep struct {
	Task  string `yaml:"task"`
	Other string `yaml:"other"`
	// Kind selects the edge for remove_edge: prerequisite or linked.
	Kind ir.EdgeKind `yaml:"kind,omitempty"`
}

type UpdateStep struct {
	Task     string   `yaml:"task"`
	Title    *string  `yaml:"title,omitempty"`
	DueDate  *string  `yaml:"due_date,omitempty"`
	Budget   *float64 `yaml:"budget_hours,omitempty"`
	Tracking *bool    `yaml:"time_tracking,omitempty"`
}

type CommentStep struct {
	Task string `yaml:"task"`
	Body string `yaml:"body"`
}

type TickStep struct{}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is "ok" or an engine error code such as MISSING_REASON.
	Outcome string `yaml:"outcome"`

	// Status is the task's status after a successful step.
	Status ir.Status `yaml:"status,omitempty"`

	// Warnings is the number of warnings a successful step returns.
	Warnings *int `yaml:"warnings,omitempty"`
}

// OutcomeOK is the outcome of a successful step.
const OutcomeOK = "ok"

// Assertion validates trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`
	// Ops is the expected order (trace_order).
	Ops []string `yaml:"ops,omitempty"`
	// Count is the expected number (trace_count, task_count).
	Count int `yaml:"count,omitempty"`

	// Task is a task key (task_status, history_*, time_spent, trace_contains).
	Task    string      `yaml:"task,omitempty"`
	Status  ir.Status   `yaml:"status,omitempty"`
	Actions []ir.Action `yaml:"actions,omitempty"`
	Hours   float64     `yaml:"hours,omitempty"`

	// Project is a project key (project_stats).
	Project string `yaml:"project,omitempty"`

	// Table and Where select one row (final_state). String values of the
	// form "$key" are replaced by the id of task key.
	Table string         `yaml:"table,omitempty"`
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected fields (project_stats, final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertTaskStatus      = "task_status"
	AssertHistoryActions  = "history_actions"
	AssertHistoryVerifies = "history_verifies"
	AssertTimeSpent       = "time_spent"
	AssertProjectStats    = "project_stats"
	AssertTaskCount       = "task_count"
	AssertFinalState      = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and cross references.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Members) == 0 {
		return fmt.Errorf("members list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	members := map[string]bool{}
	for i, m := range s.Members {
		if m.ID == "" {
			return fmt.Errorf("members[%d]: id is required", i)
		}
		members[m.ID] = true
	}
	projects := map[string]bool{}
	for i, p := range s.Projects {
		if p.Key == "" {
			return fmt.Errorf("projects[%d]: key is required", i)
		}
		projects[p.Key] = true
	}
	tasks := map[string]bool{}
	for i, t := range s.Tasks {
		if t.Key == "" {
			return fmt.Errorf("tasks[%d]: key is required", i)
		}
		if tasks[t.Key] {
			return fmt.Errorf("tasks[%d]: duplicate key %q", i, t.Key)
		}
		if t.Project != "" && !projects[t.Project] {
			return fmt.Errorf("tasks[%d]: unknown project %q", i, t.Project)
		}
		for _, p := range t.Prerequisites {
			if !tasks[p] {
				return fmt.Errorf("tasks[%d]: prerequisite %q must be declared earlier", i, p)
			}
		}
		tasks[t.Key] = true
	}

	for i, step := range s.Flow {
		if n := step.operationCount(); n != 1 {
			return fmt.Errorf("flow[%d]: exactly one operation is required, got %d", i, n)
		}
		if step.As != "" && !members[step.As] {
			return fmt.Errorf("flow[%d]: unknown member %q", i, step.As)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("flow[%d]: advance: %w", i, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlowStep) operationCount() int {
	n := 0
	for _, set := range []bool{
		f.Transition != nil,
		f.Delegate != nil,
		f.LogTime != nil,
		f.AddPrerequisite != nil,
		f.AddLinked != nil,
		f.RemoveEdge != nil,
		f.Update != nil,
		f.Comment != nil,
		f.Tick != nil,
		f.Advance != "",
	} {
		if set {
			n++
		}
	}
	return n
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTaskStatus:
		if a.Task == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: task and status are required for task_status", index)
		}
	case AssertHistoryActions:
		if a.Task == "" || len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: task and actions are required for history_actions", index)
		}
	case AssertHistoryVerifies, AssertTimeSpent:
		if a.Task == "" {
			return fmt.Errorf("assertions[%d]: task is required for %s", index, a.Type)
		}
	case AssertProjectStats:
		if a.Project == "" || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: project and expect are required for project_stats", index)
		}
	case AssertTaskCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
