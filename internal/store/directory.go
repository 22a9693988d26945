package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskflow/internal/ir"
)

// InsertMember adds a team member.
func (c *conn) InsertMember(ctx context.Context, m ir.TeamMember) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO members (id, organization_id, name, email, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.OrganizationID, m.Name, m.Email, m.Title, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMember loads a member by id.
func (c *conn) GetMember(ctx context.Context, id string) (*ir.TeamMember, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, organization_id, name, email, title, created_at
		FROM members WHERE id = ?
	`, id)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

// ListMembers returns an organization's members ordered by name.
func (c *conn) ListMembers(ctx context.Context, orgID string) ([]*ir.TeamMember, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, organization_id, name, email, title, created_at
		FROM members WHERE organization_id = ?
		ORDER BY name ASC, id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []*ir.TeamMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func scanMember(row rowScanner) (*ir.TeamMember, error) {
	var (
		m         ir.TeamMember
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Email, &m.Title, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertProject adds a project.
func (c *conn) InsertProject(ctx context.Context, p ir.Project) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO projects (id, organization_id, name, description, status, priority, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.OrganizationID, p.Name, p.Description, p.Status, string(p.Priority),
		nullDate(p.StartDate), nullDate(p.EndDate), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

const projectColumns = "id, organization_id, name, description, status, priority, start_date, end_date, created_at"

// GetProject loads a project by id.
func (c *conn) GetProject(ctx context.Context, id string) (*ir.Project, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// ListProjects returns an organization's projects ordered by name.
func (c *conn) ListProjects(ctx context.Context, orgID string) ([]*ir.Project, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE organization_id = ? ORDER BY name ASC, id ASC", orgID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []*ir.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func scanProject(row rowScanner) (*ir.Project, error) {
	var (
		p                  ir.Project
		priority           string
		startDate, endDate sql.NullString
		createdAt          string
	)
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.Status, &priority,
		&startDate, &endDate, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.Priority = ir.Priority(priority)
	var err error
	if p.StartDate, err = scanNullDate(startDate); err != nil {
		return nil, err
	}
	if p.EndDate, err = scanNullDate(endDate); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}
