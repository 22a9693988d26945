package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/ir"
)

// Request headers carrying the actor.
const (
	HeaderActor        = "X-Actor-ID"
	HeaderOrganization = "X-Organization-ID"
)

const actorKey = "taskflow.actor"

// requireActor reads the actor headers and rejects requests without them.
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ir.Actor{
			MemberID:       c.GetHeader(HeaderActor),
			OrganizationID: c.GetHeader(HeaderOrganization),
		}
		if actor.MemberID == "" || actor.OrganizationID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   HeaderActor + " and " + HeaderOrganization + " headers are required",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) ir.Actor {
	actor, _ := c.MustGet(actorKey).(ir.Actor)
	return actor
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"actor", c.GetHeader(HeaderActor),
			"duration", time.Since(start),
		)
	}
}
