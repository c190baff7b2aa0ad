package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/shared/server/respond"
	"triage-agent/internal/shared/telemetry"
)

// Recovery turns a handler panic into the standard 500 envelope. Gin's own
// recovery still handles broken client connections; its log output is
// replaced by a structured panic event.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("panic", map[string]any{
			"request_id": RequestIDFromContext(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"error":      fmt.Sprint(rec),
			"stack":      string(debug.Stack()),
		})
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
	})
}
