package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/engine"
)

// statusFor maps an engine error code to an HTTP status.
func statusFor(code engine.Code) int {
	switch code {
	case engine.CodeValidation, engine.CodeMissingReason, engine.CodeInvalidAmount:
		return http.StatusBadRequest
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeConcurrentModification:
		return http.StatusConflict
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := engine.CodeOf(err)
	status := statusFor(code)
	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	var e *engine.Error
	if errors.As(err, &e) {
		body["code"] = e.Code
		if e.Field != "" {
			body["field"] = e.Field
		}
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}
