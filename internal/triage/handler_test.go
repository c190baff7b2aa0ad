package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"triage-agent/internal/llm"
	"triage-agent/internal/services/health"
	"triage-agent/internal/shared/server/respond"
)

const validReply = `{"priority":"high","severity":"major","suggested_labels":["bug"],"summary":"Save crashes","next_steps":["reproduce"],"confidence":0.9,"reasoning":"crash"}`

func newTestRouter(client llm.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestClassifier(client), health.NewService(AgentName, "1.0.0"), 2)
	h.now = func() time.Time { return fixedNow }

	router := gin.New()
	h.RegisterAgentRoutes(router)
	h.RegisterProxyRoutes(router.Group("/api/triage"))
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAnalyzeReturnsStructuredResult(t *testing.T) {
	router := newTestRouter(staticReply(validReply))

	resp := doJSON(t, router, http.MethodPost, "/analyze", `{"title":"Crash on save","body":"app crashes"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got AnalysisResult
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := AnalysisResult{
		Priority:        PriorityHigh,
		Severity:        SeverityMajor,
		SuggestedLabels: []string{"bug"},
		Summary:         "Save crashes",
		NextSteps:       []string{"reproduce"},
		Confidence:      0.9,
		Reasoning:       "crash",
		Timestamp:       fixedNow,
		AgentVersion:    "1.0.0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	var calls int32
	client := llm.ClientFunc(func(ctx context.Context, system, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return validReply, nil
	})
	router := newTestRouter(client)

	tests := []struct {
		name    string
		body    string
		missing []string
	}{
		{name: "missing body", body: `{"title":"x"}`, missing: []string{"body"}},
		{name: "missing title", body: `{"body":"x"}`, missing: []string{"title"}},
		{name: "blank both", body: `{"title":"  ","body":""}`, missing: []string{"title", "body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/analyze", tt.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", resp.Code)
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Details struct {
						RequiredFields []string `json:"required_fields"`
					} `json:"details"`
				} `json:"error"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != "validation_error" {
				t.Fatalf("unexpected code %q", body.Error.Code)
			}
			if diff := cmp.Diff(tt.missing, body.Error.Details.RequiredFields); diff != "" {
				t.Fatalf("unexpected required fields (-want +got):\n%s", diff)
			}
		})
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("backend must not be called for invalid input, got %d calls", n)
	}
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(staticReply(validReply))
	resp := doJSON(t, router, http.MethodPost, "/analyze", `{"title":`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	var body respond.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
}

func TestAnalyzeDegradesWithoutBackend(t *testing.T) {
	router := newTestRouter(nil)

	resp := doJSON(t, router, http.MethodPost, "/analyze", `{"title":"Crash on save","body":"app crashes when clicking save","labels":"oops","comments":42}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var got AnalysisResult
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Priority != PriorityHigh || got.Confidence != KeywordConfidence {
		t.Fatalf("expected keyword fallback, got %s/%v", got.Priority, got.Confidence)
	}
}

func TestProxyAnalyzeAddsContext(t *testing.T) {
	var seen string
	client := llm.ClientFunc(func(ctx context.Context, system, prompt string) (string, error) {
		seen = prompt
		return validReply, nil
	})
	router := newTestRouter(client)

	body := `{"title":"Crash","body":"boom","number":42,"repository":"acme/app","labels":[{"name":"bug"},"ui",{"id":3}]}`
	resp := doJSON(t, router, http.MethodPost, "/api/triage/analyze", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var got struct {
		Priority    Priority  `json:"priority"`
		IssueNumber float64   `json:"issue_number"`
		Repository  string    `json:"repository"`
		AnalyzedAt  time.Time `json:"analyzed_at"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Priority != PriorityHigh || got.IssueNumber != 42 || got.Repository != "acme/app" {
		t.Fatalf("unexpected response %+v", got)
	}
	if !got.AnalyzedAt.Equal(fixedNow) {
		t.Fatalf("unexpected analyzed_at %v", got.AnalyzedAt)
	}
	if !strings.Contains(seen, "EXISTING LABELS: bug, ui") {
		t.Fatalf("expected object labels to reach the prompt, got:\n%s", seen)
	}
}

func TestBatchPreservesOrderAndCollectsErrors(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, system, prompt string) (string, error) {
		if strings.Contains(prompt, "TITLE: slow") {
			time.Sleep(30 * time.Millisecond)
		}
		return validReply, nil
	})
	router := newTestRouter(client)

	body := `{"issues":[
		{"title":"slow","body":"first","number":1},
		{"title":"no body","number":2},
		{"title":"fast","body":"third","issue_number":3},
		"not an object"
	]}`
	resp := doJSON(t, router, http.MethodPost, "/api/triage/batch", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got BatchResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BatchSize != 4 || got.Successful != 2 || got.Failed != 2 {
		t.Fatalf("unexpected counts %d/%d/%d", got.BatchSize, got.Successful, got.Failed)
	}
	if got.BatchID == "" {
		t.Fatalf("expected batch id")
	}
	var indexes []int
	for _, r := range got.Results {
		indexes = append(indexes, r.Index)
		if r.Status != "success" || r.Analysis.Priority != PriorityHigh {
			t.Fatalf("unexpected item %+v", r)
		}
	}
	if diff := cmp.Diff([]int{0, 2}, indexes); diff != "" {
		t.Fatalf("results out of order (-want +got):\n%s", diff)
	}
	if got.Errors[0].Index != 1 || got.Errors[0].IssueNumber != float64(2) {
		t.Fatalf("unexpected first error %+v", got.Errors[0])
	}
	if got.Errors[1].Index != 3 || got.Errors[1].Status != "failed" {
		t.Fatalf("unexpected second error %+v", got.Errors[1])
	}
}

func TestBatchLimits(t *testing.T) {
	router := newTestRouter(staticReply(validReply))

	items := make([]string, MaxBatchSize+1)
	for i := range items {
		items[i] = fmt.Sprintf(`{"title":"t%d","body":"b"}`, i)
	}
	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "missing issues", body: `{}`, code: "invalid_input"},
		{name: "empty issues", body: `{"issues":[]}`, code: "invalid_input"},
		{name: "not an array", body: `{"issues":"x"}`, code: "invalid_input"},
		{name: "too many", body: `{"issues":[` + strings.Join(items, ",") + `]}`, code: "too_many_issues"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/triage/batch", tt.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", resp.Code)
			}
			var body respond.ErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, body.Error.Code)
			}
		})
	}
}

func TestHealthAndMetadata(t *testing.T) {
	router := newTestRouter(nil)

	resp := doJSON(t, router, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var status health.Status
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "healthy" || status.Agent != AgentName {
		t.Fatalf("unexpected health %+v", status)
	}

	resp = doJSON(t, router, http.MethodGet, "/metadata", "")
	var meta Metadata
	if err := json.Unmarshal(resp.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"title", "body"}, meta.Schema.Input.Required); diff != "" {
		t.Fatalf("unexpected required fields (-want +got):\n%s", diff)
	}
	if got := meta.Schema.Output.Properties["priority"].Enum; len(got) != 4 {
		t.Fatalf("expected four priorities, got %v", got)
	}

	resp = doJSON(t, router, http.MethodGet, "/api/triage/agent/health", "")
	var wrapped struct {
		AgentStatus string `json:"agent_status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &wrapped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wrapped.AgentStatus != "healthy" {
		t.Fatalf("unexpected agent status %q", wrapped.AgentStatus)
	}

	resp = doJSON(t, router, http.MethodGet, "/api/triage/agent/metadata", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"retrieved_at"`) {
		t.Fatalf("unexpected metadata proxy response %d: %s", resp.Code, resp.Body.String())
	}
}
