package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type commentBody struct {
	Body string `json:"body" binding:"required"`
}

func (s *Server) handleAddComment(c *gin.Context) {
	var body commentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	comment, err := s.engine.AddComment(c.Request.Context(), actorFrom(c), c.Param("id"), body.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, comment)
}

func (s *Server) handleListComments(c *gin.Context) {
	comments, err := s.engine.ListComments(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, comments)
}

// handleAddAttachment accepts a multipart upload in the "file" field.
func (s *Server) handleAddAttachment(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	upload, err := readUpload(fh)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := s.engine.AddAttachment(c.Request.Context(), actorFrom(c), c.Param("id"), upload)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, a)
}

func (s *Server) handleListAttachments(c *gin.Context) {
	attachments, err := s.engine.ListAttachments(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, attachments)
}

func (s *Server) handleDownloadAttachment(c *gin.Context) {
	a, err := s.engine.DownloadAttachment(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	c.Data(http.StatusOK, contentType, a.Data)
}
