// Package api exposes the workflow engine over HTTP.
//
// Every request under /api carries the acting member and organization in
// the X-Actor-ID and X-Organization-ID headers. Responses are JSON envelopes
// of the form {"success": bool, "data": ...} or {"success": false,
// "error": ..., "code": ...}.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/engine"
)

// Server is the taskflow HTTP server.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		engine: eng,
		router: router,
		logger: logger,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api", requireActor())
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.POST("/tasks/:id/transition", s.handleTransition)
		api.GET("/tasks/:id/transitions", s.handleAllowedTransitions)
		api.POST("/tasks/:id/delegate", s.handleDelegate)

		api.GET("/tasks/:id/time", s.handleListTimeEntries)
		api.POST("/tasks/:id/time", s.handleAddTimeEntry)
		api.GET("/tasks/:id/budget", s.handleBudget)

		api.POST("/tasks/:id/prerequisites", s.handleAddPrerequisite)
		api.DELETE("/tasks/:id/prerequisites/:other", s.handleRemovePrerequisite)
		api.GET("/tasks/:id/blockers", s.handleBlockers)
		api.POST("/tasks/:id/links", s.handleAddLink)
		api.DELETE("/tasks/:id/links/:other", s.handleRemoveLink)
		api.GET("/graph/cycles", s.handleCycles)

		api.GET("/tasks/:id/history", s.handleHistory)
		api.GET("/tasks/:id/history/verify", s.handleVerifyHistory)

		api.GET("/tasks/:id/comments", s.handleListComments)
		api.POST("/tasks/:id/comments", s.handleAddComment)
		api.GET("/tasks/:id/attachments", s.handleListAttachments)
		api.POST("/tasks/:id/attachments", s.handleAddAttachment)
		api.GET("/attachments/:id", s.handleDownloadAttachment)

		api.GET("/members", s.handleListMembers)
		api.POST("/members", s.handleAddMember)
		api.GET("/members/:id", s.handleGetMember)

		api.GET("/projects", s.handleListProjects)
		api.POST("/projects", s.handleCreateProject)
		api.GET("/projects/:id", s.handleGetProject)
		api.GET("/projects/:id/tasks", s.handleProjectTasks)
		api.GET("/projects/:id/stats", s.handleProjectStats)
		api.GET("/stats", s.handleProgress)

		api.POST("/tick", s.handleTick)
	}

	return s
}

// Handler returns the router for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "time": s.engine.Now()})
}
