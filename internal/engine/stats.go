package engine

import (
	"context"
	"math"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// ProjectStats is a derived roll-up of a project's tasks. It is recomputed on
// every call and never stored.
type ProjectStats struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name,omitempty"`

	Total int `json:"total"`
	// Completed counts completed and approved tasks.
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Review     int `json:"review"`
	OnHold     int `json:"on_hold"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Overdue    int `json:"overdue"`

	ProgressPct int `json:"progress_pct"`
	TimelinePct int `json:"timeline_pct"`

	EstimatedHours float64 `json:"estimated_hours"`
	TimeSpent      float64 `json:"time_spent"`
}

// ComputeStats rolls up tasks as of today. project may be nil, in which case
// the timeline is 0.
func ComputeStats(project *ir.Project, tasks []*ir.Task, today ir.Date) ProjectStats {
	var s ProjectStats
	if project != nil {
		s.ProjectID = project.ID
		s.ProjectName = project.Name
	}
	for _, t := range tasks {
		s.Total++
		s.EstimatedHours += t.EstimatedHours
		s.TimeSpent += t.TimeSpent
		switch t.Status {
		case ir.StatusPending:
			s.Pending++
		case ir.StatusInProgress:
			s.InProgress++
		case ir.StatusReview:
			s.Review++
		case ir.StatusOnHold:
			s.OnHold++
		case ir.StatusApproved:
			s.Approved++
		case ir.StatusRejected:
			s.Rejected++
		}
		if t.Status.Done() {
			s.Completed++
		}
		if isOverdue(t, today) {
			s.Overdue++
		}
	}
	s.ProgressPct = percent(float64(s.Completed), float64(s.Total))
	if project != nil {
		s.TimelinePct = timelinePct(project.StartDate, project.EndDate, today)
	}
	return s
}

// isOverdue reports whether t is past its due date and still open.
func isOverdue(t *ir.Task, today ir.Date) bool {
	if t.DueDate == nil || t.Status.Done() || t.Status == ir.StatusRejected {
		return false
	}
	return t.DueDate.Before(today)
}

// timelinePct is the elapsed share of the project's date range.
func timelinePct(start, end *ir.Date, today ir.Date) int {
	if start == nil || end == nil {
		return 0
	}
	switch {
	case today.Before(*start):
		return 0
	case today.After(*end):
		return 100
	}
	span := start.DaysUntil(*end)
	if span <= 0 {
		return 100
	}
	return percent(float64(start.DaysUntil(today)), float64(span))
}

// percent returns round(part/total*100), rounding half away from zero.
// A zero total yields 0.
func percent(part, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}

// StatsFor returns the roll-up for one project.
func (e *Engine) StatsFor(ctx context.Context, actor ir.Actor, projectID string) (*ProjectStats, error) {
	p, err := e.GetProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := e.store.ListTasks(ctx, store.TaskFilter{
		OrganizationID: actor.OrganizationID,
		ProjectID:      projectID,
	})
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(p, tasks, e.Today())
	return &stats, nil
}

// ProjectProgress returns the roll-up of every project in the actor's
// organization, ordered by project name.
func (e *Engine) ProjectProgress(ctx context.Context, actor ir.Actor) ([]ProjectStats, error) {
	projects, err := e.ListProjects(ctx, actor)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	out := make([]ProjectStats, 0, len(projects))
	for _, p := range projects {
		tasks, err := e.store.ListTasks(ctx, store.TaskFilter{
			OrganizationID: actor.OrganizationID,
			ProjectID:      p.ID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ComputeStats(p, tasks, today))
	}
	return out, nil
}
