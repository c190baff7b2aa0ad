package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/shared/metrics"
	"triage-agent/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	StrategyKey    = "triageStrategy"
	PriorityKey    = "triagePriority"
	IssueNumberKey = "issueNumber"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		metrics.IncRequest(c.Writer.Status())

		strategy, _ := c.Get(StrategyKey)
		priority, _ := c.Get(PriorityKey)
		issueNumber, _ := c.Get(IssueNumberKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":   RequestIDFromContext(c),
			"method":       c.Request.Method,
			"path":         c.Request.URL.Path,
			"status":       c.Writer.Status(),
			"duration_ms":  float64(latency.Microseconds()) / 1000.0,
			"strategy":     strategy,
			"priority":     priority,
			"issue_number": issueNumber,
			"client_ip":    c.ClientIP(),
			"user_agent":   c.Request.UserAgent(),
		})
	}
}
