package engine

import (
	"context"
	"strings"

	"github.com/roach88/taskflow/internal/ir"
)

// AddMember registers a team member in the actor's organization. An empty
// m.ID is generated.
func (e *Engine) AddMember(ctx context.Context, actor ir.Actor, m ir.TeamMember) (*ir.TeamMember, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, newValidationError("name", "member name is required")
	}
	if m.ID == "" {
		m.ID = e.ids.Generate()
	} else if _, err := e.store.GetMember(ctx, m.ID); err == nil {
		return nil, newValidationError("id", "member %s already exists", m.ID)
	}
	m.OrganizationID = actor.OrganizationID
	m.CreatedAt = e.Now()
	if err := e.store.InsertMember(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMember returns a member of the actor's organization.
func (e *Engine) GetMember(ctx context.Context, actor ir.Actor, id string) (*ir.TeamMember, error) {
	m, err := e.store.GetMember(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "member", id)
	}
	if m.OrganizationID != actor.OrganizationID {
		return nil, newNotFoundError("member", id)
	}
	return m, nil
}

// ListMembers returns the members of the actor's organization by name.
func (e *Engine) ListMembers(ctx context.Context, actor ir.Actor) ([]*ir.TeamMember, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListMembers(ctx, actor.OrganizationID)
}

// CreateProject creates a project in the actor's organization.
func (e *Engine) CreateProject(ctx context.Context, actor ir.Actor, p ir.Project) (*ir.Project, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, newValidationError("name", "project name is required")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.Priority == "" {
		p.Priority = ir.PriorityMedium
	}
	if !p.Priority.Valid() {
		return nil, newValidationError("priority", "unknown priority %q", p.Priority)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return nil, newValidationError("end_date", "end date %s is before start date %s", p.EndDate, p.StartDate)
	}
	p.ID = e.ids.Generate()
	p.OrganizationID = actor.OrganizationID
	p.CreatedAt = e.Now()
	if err := e.store.InsertProject(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject returns a project of the actor's organization.
func (e *Engine) GetProject(ctx context.Context, actor ir.Actor, id string) (*ir.Project, error) {
	p, err := e.store.GetProject(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "project", id)
	}
	if p.OrganizationID != actor.OrganizationID {
		return nil, newNotFoundError("project", id)
	}
	return p, nil
}

// ListProjects returns the projects of the actor's organization by name.
func (e *Engine) ListProjects(ctx context.Context, actor ir.Actor) ([]*ir.Project, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	return e.store.ListProjects(ctx, actor.OrganizationID)
}
