package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs and sends a standardized error response. Client errors log at
// warn level, server errors at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	logf := telemetry.Warn
	if status >= http.StatusInternalServerError {
		logf = telemetry.Error
	}
	logf("http.error", map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	})

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// ValidationError sends a 400 with the offending fields listed in details.
func ValidationError(c *gin.Context, message string, fields ...string) {
	var details any
	if len(fields) > 0 {
		details = gin.H{"required_fields": fields}
	}
	Error(c, http.StatusBadRequest, "validation_error", message, details)
}
