package triage

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/services/health"
	"triage-agent/internal/shared/server/middleware"
	"triage-agent/internal/shared/server/respond"
)

const (
	AgentName        = "triage-agent"
	MaxBatchSize     = 10
	defaultBatchJobs = 3
)

// Handler wires HTTP handlers to the classifier.
type Handler struct {
	Classifier       *Classifier
	Health           *health.Service
	BatchConcurrency int
	now              func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(classifier *Classifier, healthSvc *health.Service, batchConcurrency int) *Handler {
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchJobs
	}
	return &Handler{
		Classifier:       classifier,
		Health:           healthSvc,
		BatchConcurrency: batchConcurrency,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// RegisterAgentRoutes attaches the agent endpoints: health, metadata and analyze.
func (h *Handler) RegisterAgentRoutes(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/metadata", h.metadata)
	r.POST("/analyze", h.analyze)
}

// RegisterProxyRoutes attaches the UI-facing triage endpoints.
func (h *Handler) RegisterProxyRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyzeWithContext)
	rg.POST("/batch", h.batch)
	rg.GET("/agent/health", h.agentHealth)
	rg.GET("/agent/metadata", h.agentMetadata)
}

func (h *Handler) health(c *gin.Context) {
	respond.OK(c, h.Health.Status())
}

func (h *Handler) metadata(c *gin.Context) {
	respond.OK(c, BuildMetadata(h.Classifier.Version()))
}

func (h *Handler) analyze(c *gin.Context) {
	req, ok := bindAnalyzeRequest(c)
	if !ok {
		return
	}
	outcome := h.Classifier.Classify(c.Request.Context(), req.issue())
	annotate(c, outcome, nil)
	respond.OK(c, outcome.Result)
}

// ContextualAnalysis is the proxy response: the result plus the identifiers
// the UI needs to match it back to an issue.
type ContextualAnalysis struct {
	AnalysisResult
	IssueNumber any       `json:"issue_number,omitempty"`
	Repository  string    `json:"repository,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

func (h *Handler) analyzeWithContext(c *gin.Context) {
	req, ok := bindAnalyzeRequest(c)
	if !ok {
		return
	}
	issue := req.issue()
	number := req.issueNumber()
	outcome := h.Classifier.Classify(c.Request.Context(), issue)
	annotate(c, outcome, number)
	respond.OK(c, ContextualAnalysis{
		AnalysisResult: outcome.Result,
		IssueNumber:    number,
		Repository:     issue.Repository,
		AnalyzedAt:     h.now(),
	})
}

func (h *Handler) agentHealth(c *gin.Context) {
	respond.OK(c, gin.H{
		"agent_status":   "healthy",
		"agent_response": h.Health.Status(),
		"checked_at":     h.now(),
	})
}

func (h *Handler) agentMetadata(c *gin.Context) {
	respond.OK(c, gin.H{
		"metadata":     BuildMetadata(h.Classifier.Version()),
		"retrieved_at": h.now(),
	})
}

func bindAnalyzeRequest(c *gin.Context) (analyzeRequest, bool) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", nil)
		return req, false
	}
	if missing := req.missingFields(); len(missing) > 0 {
		respond.ValidationError(c, "title and body are required", missing...)
		return req, false
	}
	return req, true
}

func annotate(c *gin.Context, outcome Outcome, issueNumber any) {
	c.Set(middleware.StrategyKey, string(outcome.Strategy))
	c.Set(middleware.PriorityKey, string(outcome.Result.Priority))
	if issueNumber != nil {
		c.Set(middleware.IssueNumberKey, issueNumber)
	}
}
