package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/ir"
)

func (s *Server) handleAddMember(c *gin.Context) {
	var m ir.TeamMember
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err.Error())
		return
	}
	member, err := s.engine.AddMember(c.Request.Context(), actorFrom(c), m)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, member)
}

func (s *Server) handleGetMember(c *gin.Context) {
	m, err := s.engine.GetMember(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, m)
}

func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.engine.ListMembers(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, members)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var p ir.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	project, err := s.engine.CreateProject(c.Request.Context(), actorFrom(c), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, project)
}

func (s *Server) handleGetProject(c *gin.Context) {
	p, err := s.engine.GetProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, p)
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.engine.ListProjects(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, projects)
}

func (s *Server) handleProjectTasks(c *gin.Context) {
	tasks, err := s.engine.ListByProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
		"count":   len(tasks),
	})
}

func (s *Server) handleProjectStats(c *gin.Context) {
	stats, err := s.engine.StatsFor(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, stats)
}

// handleProgress serves the roll-up of every project in the organization.
func (s *Server) handleProgress(c *gin.Context) {
	stats, err := s.engine.ProjectProgress(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, stats)
}

// handleTick spawns any missing recurring successors as of the engine clock.
func (s *Server) handleTick(c *gin.Context) {
	res, err := s.engine.Tick(c.Request.Context(), s.engine.Now())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("recurrence tick", "spawned", len(res.Spawned), "warnings", len(res.Warnings))
	ok(c, res)
}
