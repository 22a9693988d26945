package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskflow/internal/ir"
)

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.eng.AddMember(ctx, alice, ir.TeamMember{Name: " Dave ", Email: "dave@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Dave", m.Name)
	assert.Equal(t, "org-1", m.OrganizationID)
	assert.NotEmpty(t, m.ID)

	_, err = f.eng.AddMember(ctx, alice, ir.TeamMember{ID: "bob", Name: "Bob again"})
	assert.True(t, HasCode(err, CodeValidation))
	_, err = f.eng.AddMember(ctx, alice, ir.TeamMember{Name: ""})
	assert.True(t, IsValidation(err))

	members, err := f.eng.ListMembers(ctx, alice)
	require.NoError(t, err)
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, names)

	_, err = f.eng.GetMember(ctx, mallory, "alice")
	assert.True(t, IsNotFound(err))
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.eng.CreateProject(ctx, alice, ir.Project{Name: "Website"})
	require.NoError(t, err)
	assert.Equal(t, "active", p.Status)
	assert.Equal(t, ir.PriorityMedium, p.Priority)

	got, err := f.eng.GetProject(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Website", got.Name)

	_, err = f.eng.GetProject(ctx, mallory, p.ID)
	assert.True(t, IsNotFound(err))

	_, err = f.eng.CreateProject(ctx, alice, ir.Project{
		Name:      "Backwards",
		StartDate: date("2026-03-10"),
		EndDate:   date("2026-03-01"),
	})
	assert.True(t, IsValidation(err))

	_, err = f.eng.CreateProject(ctx, alice, ir.Project{Name: "Odd", Priority: "extreme"})
	assert.True(t, IsValidation(err))
}
