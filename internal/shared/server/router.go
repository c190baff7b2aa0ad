package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/github"
	"triage-agent/internal/shared/config"
	"triage-agent/internal/shared/metrics"
	"triage-agent/internal/shared/server/middleware"
	"triage-agent/internal/triage"
)

const (
	rateGroupAPI   = "API"
	rateGroupBatch = "BATCH"
	rateGroupNone  = "NONE"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	TriageHandler *triage.Handler
	GitHubHandler *github.Handler
	Limiter       *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	apiRule := middleware.RuleFromWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
	batchMax := cfg.RateLimitMax / triage.MaxBatchSize
	if batchMax < 1 {
		batchMax = 1
	}
	rules := map[string]middleware.RateLimitRule{}
	if apiRule.Burst > 0 {
		rules[rateGroupAPI] = apiRule
		rules[rateGroupBatch] = middleware.RuleFromWindow(batchMax, cfg.RateLimitWindow)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateGroupNone,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	if deps.TriageHandler != nil {
		deps.TriageHandler.RegisterAgentRoutes(r)
		deps.TriageHandler.RegisterProxyRoutes(r.Group("/api/triage"))
	}
	if deps.GitHubHandler != nil {
		deps.GitHubHandler.RegisterRoutes(r.Group("/api/github"))
	}
	return r
}

// Only the /api surface is limited; batch calls get a tighter bucket.
func rateGroupFor(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case path == "/api/triage/batch":
		return rateGroupBatch
	case strings.HasPrefix(path, "/api/"):
		return rateGroupAPI
	default:
		return rateGroupNone
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3001"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
