package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
)

// DefaultRejectionReason is used for tasks seeded as rejected without a reason.
const DefaultRejectionReason = "rejected in fixture"

// Result maps fixture labels to the ids Apply created.
type Result struct {
	Organization string            `json:"organization"`
	Members      []string          `json:"members"`
	Projects     map[string]string `json:"projects"`
	Tasks        map[string]string `json:"tasks"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// Apply writes fx through eng. Members that already exist are kept. The
// fixture is checked for prerequisite cycles before anything is written;
// other failures stop the import where they occur.
func Apply(ctx context.Context, eng *engine.Engine, fx *Fixture) (*Result, error) {
	order, err := taskOrder(fx.Tasks)
	if err != nil {
		return nil, err
	}

	actor := ir.Actor{MemberID: fx.SeededBy, OrganizationID: fx.Organization}
	if actor.MemberID == "" {
		actor.MemberID = ir.SystemMemberID
	}
	res := &Result{
		Organization: fx.Organization,
		Members:      []string{},
		Projects:     map[string]string{},
		Tasks:        map[string]string{},
	}

	for _, key := range sortedKeys(fx.Members) {
		m := fx.Members[key]
		if _, err := eng.GetMember(ctx, actor, key); err == nil {
			continue
		}
		if _, err := eng.AddMember(ctx, actor, ir.TeamMember{
			ID:    key,
			Name:  m.Name,
			Email: m.Email,
			Title: m.Title,
		}); err != nil {
			return res, fmt.Errorf("member %s: %w", key, err)
		}
		res.Members = append(res.Members, key)
	}

	for _, key := range sortedKeys(fx.Projects) {
		p := fx.Projects[key]
		project := ir.Project{
			Name:        p.Name,
			Description: p.Description,
			Priority:    ir.Priority(p.Priority),
		}
		if project.StartDate, err = parseOptionalDate("project."+key+".start_date", p.StartDate); err != nil {
			return res, err
		}
		if project.EndDate, err = parseOptionalDate("project."+key+".end_date", p.EndDate); err != nil {
			return res, err
		}
		created, err := eng.CreateProject(ctx, actor, project)
		if err != nil {
			return res, fmt.Errorf("project %s: %w", key, err)
		}
		res.Projects[key] = created.ID
	}

	for _, key := range order {
		draft, err := res.draft(key, fx.Tasks[key])
		if err != nil {
			return res, err
		}
		created, err := eng.CreateTask(ctx, actor, draft)
		if err != nil {
			return res, fmt.Errorf("task %s: %w", key, err)
		}
		res.Tasks[key] = created.ID
	}

	for _, key := range order {
		for _, other := range fx.Tasks[key].Linked {
			if _, err := eng.AddLinkedTask(ctx, actor, res.Tasks[key], res.Tasks[other]); err != nil {
				return res, fmt.Errorf("task %s: link %s: %w", key, other, err)
			}
		}
	}

	for _, key := range order {
		t := fx.Tasks[key]
		id := res.Tasks[key]
		if t.TimeLogged > 0 {
			if _, err := eng.AddTimeEntry(ctx, actor, engine.TimeEntryRequest{
				TaskID:      id,
				Hours:       t.TimeLogged,
				Description: "imported",
			}); err != nil {
				return res, fmt.Errorf("task %s: time_logged: %w", key, err)
			}
		}
		if t.Status == "" || ir.Status(t.Status) == ir.StatusPending {
			continue
		}
		for _, step := range StatusPath(ir.StatusPending, ir.Status(t.Status)) {
			req := engine.TransitionRequest{TaskID: id, To: step}
			if step == ir.StatusRejected {
				req.Reason = t.Reason
				if strings.TrimSpace(req.Reason) == "" {
					req.Reason = DefaultRejectionReason
				}
			}
			out, err := eng.Transition(ctx, actor, req)
			if err != nil {
				return res, fmt.Errorf("task %s: status %s: %w", key, t.Status, err)
			}
			res.Warnings = append(res.Warnings, out.Warnings...)
		}
	}

	return res, nil
}

// draft converts a fixture task into an engine draft, resolving labels.
func (r *Result) draft(key string, t Task) (ir.Task, error) {
	d := ir.Task{
		ProjectID:           r.Projects[t.Project],
		Title:               t.Title,
		Description:         t.Description,
		Priority:            ir.Priority(t.Priority),
		Category:            t.Category,
		Visibility:          ir.Visibility(t.Visibility),
		EstimatedHours:      t.EstimatedHours,
		BudgetHours:         t.BudgetHours,
		TimeTrackingEnabled: t.TimeTracking || t.Billable || t.TimeLogged > 0,
		IsBillable:          t.Billable,
		ClientReference:     t.ClientReference,
		AcceptanceCriteria:  t.AcceptanceCriteria,
		AssignedTo:          t.AssignedTo,
		Assignees:           t.Assignees,
		Approvers:           t.Approvers,
		Watchers:            t.Watchers,
		Tags:                t.Tags,
	}
	var err error
	if d.StartDate, err = parseOptionalDate("task."+key+".start_date", t.StartDate); err != nil {
		return d, err
	}
	if d.DueDate, err = parseOptionalDate("task."+key+".due_date", t.DueDate); err != nil {
		return d, err
	}
	if t.Recurring != nil {
		d.IsRecurring = true
		d.RecurringFrequency = ir.Frequency(t.Recurring.Frequency)
		if d.RecurringEndsOn, err = parseOptionalDate("task."+key+".recurring.ends_on", t.Recurring.EndsOn); err != nil {
			return d, err
		}
	}
	for _, p := range t.Prerequisites {
		d.Prerequisites = append(d.Prerequisites, r.Tasks[p])
	}
	return d, nil
}

func parseOptionalDate(field, s string) (*ir.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ir.ParseDate(s)
	if err != nil {
		return nil, &Error{Field: field, Message: err.Error()}
	}
	return &d, nil
}

// taskOrder returns task labels with every prerequisite before its
// dependents, breaking ties lexically. A prerequisite cycle is an error.
func taskOrder(tasks map[string]Task) ([]string, error) {
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for key := range tasks {
		indegree[key] = 0
	}
	for key, t := range tasks {
		for _, p := range t.Prerequisites {
			indegree[key]++
			dependents[p] = append(dependents[p], key)
		}
	}

	var ready []string
	for key, n := range indegree {
		if n == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(tasks))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)
		for _, d := range dependents[key] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}

	if len(order) < len(tasks) {
		var stuck []string
		for key, n := range indegree {
			if n > 0 {
				stuck = append(stuck, key)
			}
		}
		sort.Strings(stuck)
		return nil, &Error{
			Field:   "task.prerequisites",
			Message: "prerequisite cycle among " + strings.Join(stuck, ", "),
		}
	}
	return order, nil
}

// StatusPath returns the shortest sequence of transitions from one status to
// another, excluding from. It returns nil when to is unreachable or equal to
// from.
func StatusPath(from, to ir.Status) []ir.Status {
	if from == to {
		return nil
	}
	prev := map[ir.Status]ir.Status{from: ""}
	queue := []ir.Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range engine.AllowedTransitions(cur) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []ir.Status
				for s := to; s != from; s = prev[s] {
					path = append([]ir.Status{s}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}
