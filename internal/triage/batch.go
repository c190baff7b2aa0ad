package triage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"triage-agent/internal/shared/server/respond"
	"triage-agent/internal/shared/telemetry"
)

type batchRequest struct {
	Issues json.RawMessage `json:"issues"`
}

// BatchItem is one successful analysis in a batch response.
type BatchItem struct {
	Index       int            `json:"index"`
	IssueNumber any            `json:"issue_number,omitempty"`
	Analysis    AnalysisResult `json:"analysis"`
	Status      string         `json:"status"`
}

// BatchFailure is one rejected issue in a batch response.
type BatchFailure struct {
	Index       int    `json:"index"`
	IssueNumber any    `json:"issue_number,omitempty"`
	Error       string `json:"error"`
	Status      string `json:"status"`
}

// BatchResponse summarizes a batch analysis. Results keep input order.
type BatchResponse struct {
	BatchID     string         `json:"batch_id"`
	BatchSize   int            `json:"batch_size"`
	Successful  int            `json:"successful"`
	Failed      int            `json:"failed"`
	Results     []BatchItem    `json:"results"`
	Errors      []BatchFailure `json:"errors"`
	ProcessedAt time.Time      `json:"processed_at"`
}

func (h *Handler) batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "request body must be a JSON object", nil)
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(req.Issues, &items); err != nil || len(items) == 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "issues must be a non-empty array", nil)
		return
	}
	if len(items) > MaxBatchSize {
		respond.Error(c, http.StatusBadRequest, "too_many_issues", fmt.Sprintf("Maximum %d issues allowed per batch request", MaxBatchSize), nil)
		return
	}

	resp := h.runBatch(c, items)
	telemetry.Info("triage.batch", map[string]any{
		"batch_id":   resp.BatchID,
		"batch_size": resp.BatchSize,
		"successful": resp.Successful,
		"failed":     resp.Failed,
	})
	respond.OK(c, resp)
}

type batchSlot struct {
	item    *BatchItem
	failure *BatchFailure
}

func (h *Handler) runBatch(c *gin.Context, items []json.RawMessage) BatchResponse {
	slots := make([]batchSlot, len(items))

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(h.BatchConcurrency)
	for i, raw := range items {
		i, raw := i, raw
		g.Go(func() error {
			var req analyzeRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				slots[i].failure = &BatchFailure{Index: i, Error: "issue must be a JSON object", Status: "failed"}
				return nil
			}
			number := req.issueNumber()
			if missing := req.missingFields(); len(missing) > 0 {
				slots[i].failure = &BatchFailure{Index: i, IssueNumber: number, Error: "title and body are required", Status: "failed"}
				return nil
			}
			result := h.Classifier.Analyze(ctx, req.issue())
			slots[i].item = &BatchItem{Index: i, IssueNumber: number, Analysis: result, Status: "success"}
			return nil
		})
	}
	_ = g.Wait()

	resp := BatchResponse{
		BatchID:     uuid.NewString(),
		BatchSize:   len(items),
		Results:     []BatchItem{},
		Errors:      []BatchFailure{},
		ProcessedAt: h.now(),
	}
	for _, slot := range slots {
		switch {
		case slot.item != nil:
			resp.Results = append(resp.Results, *slot.item)
		case slot.failure != nil:
			resp.Errors = append(resp.Errors, *slot.failure)
		}
	}
	resp.Successful = len(resp.Results)
	resp.Failed = len(resp.Errors)
	return resp
}
