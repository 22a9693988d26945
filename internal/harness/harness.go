package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
	"github.com/roach88/taskflow/internal/testutil"
)

// Op names used in trace events.
const (
	OpTransition      = "transition"
	OpDelegate        = "delegate"
	OpLogTime         = "log_time"
	OpAddPrerequisite = "add_prerequisite"
	OpAddLinked       = "add_linked"
	OpRemoveEdge      = "remove_edge"
	OpUpdate          = "update"
	OpComment         = "comment"
	OpTick            = "tick"
	OpAdvance         = "advance"
)

// successorSuffix is appended to a parent's key to name its next occurrence.
const successorSuffix = "+next"

// Harness holds the state of one scenario execution.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.FixedClock
	org    string
	// owner is the default actor: the first member.
	owner string

	tasks    map[string]string // key -> id
	labels   map[string]string // id -> key
	projects map[string]string // key -> id
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Setup failures are
// returned as errors; step and assertion failures are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	now := scenario.Now
	if now.IsZero() {
		now = DefaultNow
	}
	clock := testutil.NewFixedClock(now)
	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("id")),
		engine.WithNotifier(engine.NopNotifier{}),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.EnforcePrerequisites != nil {
		opts = append(opts, engine.WithPrerequisiteGate(*scenario.EnforcePrerequisites))
	}

	org := scenario.Organization
	if org == "" {
		org = DefaultOrganization
	}
	h := &Harness{
		store:    st,
		engine:   engine.New(st, opts...),
		clock:    clock,
		org:      org,
		owner:    scenario.Members[0].ID,
		tasks:    map[string]string{},
		labels:   map[string]string{},
		projects: map[string]string{},
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for key, id := range h.tasks {
		t, err := h.engine.GetTask(ctx, h.actor(""), id)
		if err != nil {
			return nil, fmt.Errorf("final state of %s: %w", key, err)
		}
		result.Final[key] = string(t.Status)
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) actor(as string) ir.Actor {
	if as == "" {
		as = h.owner
	}
	return ir.Actor{MemberID: as, OrganizationID: h.org}
}

// setup creates members, projects and tasks as the first member.
func (h *Harness) setup(ctx context.Context, s *Scenario) error {
	owner := h.actor("")
	for _, m := range s.Members {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		if _, err := h.engine.AddMember(ctx, owner, ir.TeamMember{ID: m.ID, Name: name}); err != nil {
			return fmt.Errorf("member %s: %w", m.ID, err)
		}
	}

	for _, p := range s.Projects {
		project := ir.Project{Name: p.Name}
		var err error
		if project.StartDate, err = optionalDate(p.StartDate); err != nil {
			return fmt.Errorf("project %s: %w", p.Key, err)
		}
		if project.EndDate, err = optionalDate(p.EndDate); err != nil {
			return fmt.Errorf("project %s: %w", p.Key, err)
		}
		created, err := h.engine.CreateProject(ctx, owner, project)
		if err != nil {
			return fmt.Errorf("project %s: %w", p.Key, err)
		}
		h.projects[p.Key] = created.ID
	}

	for _, ts := range s.Tasks {
		draft, err := h.draft(ts)
		if err != nil {
			return fmt.Errorf("task %s: %w", ts.Key, err)
		}
		created, err := h.engine.CreateTask(ctx, owner, draft)
		if err != nil {
			return fmt.Errorf("task %s: %w", ts.Key, err)
		}
		h.name(ts.Key, created.ID)
	}
	return nil
}

func (h *Harness) draft(ts TaskSpec) (ir.Task, error) {
	d := ir.Task{
		Title:               ts.Title,
		ProjectID:           h.projects[ts.Project],
		AssignedTo:          ts.AssignedTo,
		Approvers:           ts.Approvers,
		EstimatedHours:      ts.EstimatedHours,
		BudgetHours:         ts.BudgetHours,
		TimeTrackingEnabled: ts.TimeTracking,
		IsBillable:          ts.Billable,
	}
	var err error
	if d.StartDate, err = optionalDate(ts.StartDate); err != nil {
		return d, err
	}
	if d.DueDate, err = optionalDate(ts.DueDate); err != nil {
		return d, err
	}
	if ts.Recurring != "" {
		d.IsRecurring = true
		d.RecurringFrequency = ir.Frequency(ts.Recurring)
		if d.RecurringEndsOn, err = optionalDate(ts.RecurringUntil); err != nil {
			return d, err
		}
	}
	for _, p := range ts.Prerequisites {
		d.Prerequisites = append(d.Prerequisites, h.tasks[p])
	}
	return d, nil
}

func (h *Harness) name(key, id string) {
	h.tasks[key] = id
	h.labels[id] = key
}

// nameSuccessor registers a spawned successor under its parent's key.
func (h *Harness) nameSuccessor(t *ir.Task) string {
	parent, ok := h.labels[t.RecurrenceParentID]
	if !ok {
		parent = t.RecurrenceParentID
	}
	key := parent + successorSuffix
	h.name(key, t.ID)
	return key
}

// id resolves a task key. Unknown keys pass through so that the engine
// reports them as NOT_FOUND.
func (h *Harness) id(key string) string {
	if id, ok := h.tasks[key]; ok {
		return id
	}
	return key
}

// executeStep runs one flow step, records its trace event and checks its
// expectation. Only non-engine errors are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	actor := h.actor(step.As)
	ev := TraceEvent{Actor: actor.MemberID, Outcome: OutcomeOK}
	var (
		status   ir.Status
		warnings []string
		err      error
	)

	switch {
	case step.Transition != nil:
		s := step.Transition
		ev.Op, ev.Task = OpTransition, s.Task
		var res *engine.TransitionResult
		res, err = h.engine.Transition(ctx, actor, engine.TransitionRequest{
			TaskID: h.id(s.Task),
			To:     s.To,
			Reason: s.Reason,
		})
		if err == nil {
			status, warnings = res.Task.Status, res.Warnings
			ev.Status = string(status)
			ev.Detail = fmt.Sprintf("%s -> %s", res.From, res.Task.Status)
			if res.Successor != nil {
				ev.Detail += ", spawned " + h.nameSuccessor(res.Successor)
			}
		}

	case step.Delegate != nil:
		s := step.Delegate
		ev.Op, ev.Task = OpDelegate, s.Task
		var res *engine.DelegateResult
		res, err = h.engine.Delegate(ctx, actor, engine.DelegateRequest{
			TaskID: h.id(s.Task),
			To:     s.To,
			Notes:  s.Notes,
		})
		if err == nil {
			status, warnings = res.Task.Status, res.Warnings
			ev.Detail = "to " + res.Task.AssignedTo
		}

	case step.LogTime != nil:
		s := step.LogTime
		ev.Op, ev.Task = OpLogTime, s.Task
		var res *engine.TimeEntryResult
		res, err = h.engine.AddTimeEntry(ctx, actor, engine.TimeEntryRequest{
			TaskID:      h.id(s.Task),
			Hours:       s.Hours,
			Description: s.Description,
		})
		if err == nil {
			status = res.Task.Status
			ev.Detail = fmt.Sprintf("+%s, spent %s",
				engine.FormatHours(s.Hours), engine.FormatHours(res.Task.TimeSpent))
		}

	case step.AddPrerequisite != nil:
		s := step.AddPrerequisite
		ev.Op, ev.Task = OpAddPrerequisite, s.Task
		var t *ir.Task
		t, err = h.engine.AddPrerequisite(ctx, actor, h.id(s.Other), h.id(s.Task))
		if err == nil {
			status = t.Status
			ev.Detail = s.Other + " -> " + s.Task
		}

	case step.AddLinked != nil:
		s := step.AddLinked
		ev.Op, ev.Task = OpAddLinked, s.Task
		var t *ir.Task
		t, err = h.engine.AddLinkedTask(ctx, actor, h.id(s.Task), h.id(s.Other))
		if err == nil {
			status = t.Status
			ev.Detail = s.Task + " -> " + s.Other
		}

	case step.RemoveEdge != nil:
		s := step.RemoveEdge
		ev.Op, ev.Task = OpRemoveEdge, s.Task
		edge := ir.Edge{Kind: s.Kind, From: h.id(s.Task), To: h.id(s.Other)}
		from, to := s.Task, s.Other
		if s.Kind == ir.EdgePrerequisite {
			edge.From, edge.To = edge.To, edge.From
			from, to = to, from
		}
		var t *ir.Task
		t, err = h.engine.RemoveEdge(ctx, actor, edge)
		if err == nil {
			status = t.Status
			ev.Detail = fmt.Sprintf("%s %s -> %s", s.Kind, from, to)
		}

	case step.Update != nil:
		s := step.Update
		ev.Op, ev.Task = OpUpdate, s.Task
		patch := engine.TaskPatch{
			Title:               s.Title,
			BudgetHours:         s.Budget,
			TimeTrackingEnabled: s.Tracking,
		}
		if s.DueDate != nil {
			var d ir.Date
			if *s.DueDate != "" {
				if d, err = ir.ParseDate(*s.DueDate); err != nil {
					return err
				}
			}
			patch.DueDate = &d
		}
		var t *ir.Task
		t, err = h.engine.UpdateTask(ctx, actor, h.id(s.Task), patch)
		if err == nil {
			status = t.Status
		}

	case step.Comment != nil:
		s := step.Comment
		ev.Op, ev.Task = OpComment, s.Task
		_, err = h.engine.AddComment(ctx, actor, h.id(s.Task), s.Body)

	case step.Tick != nil:
		ev.Op, ev.Actor = OpTick, ""
		var res *engine.TickResult
		res, err = h.engine.Tick(ctx, h.clock.Now())
		if err == nil {
			warnings = res.Warnings
			names := make([]string, 0, len(res.Spawned))
			for _, t := range res.Spawned {
				names = append(names, h.nameSuccessor(t))
			}
			ev.Detail = fmt.Sprintf("spawned %d", len(names))
			if len(names) > 0 {
				ev.Detail += ": " + strings.Join(names, ", ")
			}
		}

	case step.Advance != "":
		ev.Op, ev.Actor = OpAdvance, ""
		d, perr := time.ParseDuration(step.Advance)
		if perr != nil {
			return perr
		}
		ev.Detail = "now " + h.clock.Advance(d).Format(time.RFC3339)
	}

	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return err
		}
		ev.Outcome = string(code)
	}
	result.AddTrace(ev)
	h.checkExpect(index, step.Expect, ev, status, warnings, result)
	return nil
}

func (h *Harness) checkExpect(index int, expect *ExpectClause, ev TraceEvent, status ir.Status, warnings []string, result *Result) {
	want := OutcomeOK
	if expect != nil {
		want = expect.Outcome
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", index, ev.Op, want, ev.Outcome))
		return
	}
	if expect == nil || ev.Outcome != OutcomeOK {
		return
	}
	if expect.Status != "" && status != expect.Status {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected status %s, got %s", index, ev.Op, expect.Status, status))
	}
	if expect.Warnings != nil && len(warnings) != *expect.Warnings {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %d warnings, got %d %v", index, ev.Op, *expect.Warnings, len(warnings), warnings))
	}
}

func optionalDate(s string) (*ir.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ir.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
