package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

type transitionBody struct {
	To              ir.Status `json:"to" binding:"required"`
	Reason          string    `json:"reason"`
	ExpectedVersion int64     `json:"expected_version"`
}

func (s *Server) handleTransition(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := s.engine.Transition(c.Request.Context(), actorFrom(c), engine.TransitionRequest{
		TaskID:          c.Param("id"),
		To:              body.To,
		Reason:          body.Reason,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, res)
}

// handleAllowedTransitions lists the statuses the task may move to next.
func (s *Server) handleAllowedTransitions(c *gin.Context) {
	t, err := s.engine.GetTask(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{
		"status":   t.Status,
		"allowed":  engine.AllowedTransitions(t.Status),
		"terminal": engine.IsTerminal(t.Status),
	})
}

type delegateBody struct {
	To              string `json:"to" binding:"required"`
	Notes           string `json:"notes"`
	ExpectedVersion int64  `json:"expected_version"`
}

func (s *Server) handleDelegate(c *gin.Context) {
	var body delegateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := s.engine.Delegate(c.Request.Context(), actorFrom(c), engine.DelegateRequest{
		TaskID:          c.Param("id"),
		To:              body.To,
		Notes:           body.Notes,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, res)
}

type timeEntryBody struct {
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

func (s *Server) handleAddTimeEntry(c *gin.Context) {
	var body timeEntryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := s.engine.AddTimeEntry(c.Request.Context(), actorFrom(c), engine.TimeEntryRequest{
		TaskID:      c.Param("id"),
		Hours:       body.Hours,
		Description: body.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, res)
}

func (s *Server) handleListTimeEntries(c *gin.Context) {
	entries, err := s.engine.ListTimeEntries(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, entries)
}

func (s *Server) handleBudget(c *gin.Context) {
	ctx, actor := c.Request.Context(), actorFrom(c)
	t, err := s.engine.GetTask(ctx, actor, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	remaining, err := s.engine.RemainingBudget(ctx, actor, t.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{
		"budget_hours":     t.BudgetHours,
		"time_spent":       t.TimeSpent,
		"remaining_budget": remaining,
	})
}

type edgeBody struct {
	TaskID string `json:"task_id" binding:"required"`
}

// handleAddPrerequisite makes the task in the body a prerequisite of :id.
func (s *Server) handleAddPrerequisite(c *gin.Context) {
	var body edgeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := s.engine.AddPrerequisite(c.Request.Context(), actorFrom(c), body.TaskID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, t)
}

func (s *Server) handleRemovePrerequisite(c *gin.Context) {
	s.removeEdge(c, ir.Edge{Kind: ir.EdgePrerequisite, From: c.Param("other"), To: c.Param("id")})
}

func (s *Server) handleAddLink(c *gin.Context) {
	var body edgeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := s.engine.AddLinkedTask(c.Request.Context(), actorFrom(c), c.Param("id"), body.TaskID)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, t)
}

func (s *Server) handleRemoveLink(c *gin.Context) {
	s.removeEdge(c, ir.Edge{Kind: ir.EdgeLinked, From: c.Param("id"), To: c.Param("other")})
}

func (s *Server) removeEdge(c *gin.Context, edge ir.Edge) {
	t, err := s.engine.RemoveEdge(c.Request.Context(), actorFrom(c), edge)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, t)
}

// handleBlockers lists the unresolved prerequisites of a task.
func (s *Server) handleBlockers(c *gin.Context) {
	blockers, err := s.engine.UnresolvedPrerequisites(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, blockers)
}

func (s *Server) handleCycles(c *gin.Context) {
	cycles, err := s.engine.GraphCycles(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, cycles)
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.engine.GetHistory(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, entries)
}

// handleVerifyHistory reports a broken chain as valid=false rather than an
// error status.
func (s *Server) handleVerifyHistory(c *gin.Context) {
	err := s.engine.VerifyHistory(c.Request.Context(), actorFrom(c), c.Param("id"))
	var chain *store.ChainError
	switch {
	case err == nil:
		ok(c, gin.H{"valid": true})
	case errors.As(err, &chain):
		ok(c, gin.H{
			"valid":  false,
			"seq":    chain.Seq,
			"reason": chain.Reason,
		})
	default:
		s.fail(c, err)
	}
}
