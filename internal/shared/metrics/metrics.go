package metrics

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	analysisStarted   atomic.Uint64
	analysisCompleted atomic.Uint64
	analysisDegraded  atomic.Uint64
	backendErrors     atomic.Uint64

	analysisByStrategy = newCounterVec()
	requestsByStatus   = newCounterVec()
	rateLimitedByGroup = newCounterVec()

	analysisDuration = newHistogram(10, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000)
)

func IncAnalysisStarted() { analysisStarted.Add(1) }

// IncAnalysisCompleted counts a finished analysis under the strategy that
// produced it.
func IncAnalysisCompleted(strategy string, degraded bool) {
	analysisCompleted.Add(1)
	if degraded {
		analysisDegraded.Add(1)
	}
	analysisByStrategy.inc(strategy)
}

func IncBackendError() { backendErrors.Add(1) }

// IncRequest counts a served HTTP request by status class (2xx, 4xx, ...).
func IncRequest(status int) {
	requestsByStatus.inc(strconv.Itoa(status/100) + "xx")
}

// IncRateLimited counts a request rejected by the limiter.
func IncRateLimited(group string) { rateLimitedByGroup.inc(group) }

// ObserveAnalysisDurationMs records an analysis duration. Negative values
// count as zero.
func ObserveAnalysisDurationMs(ms float64) {
	analysisDuration.observe(max(ms, 0))
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Handler serves Render output as Prometheus text exposition.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render returns every metric in Prometheus text format.
func Render() string {
	var b strings.Builder
	counter(&b, "triage_analysis_started_total", "Total analyses started", analysisStarted.Load())
	counter(&b, "triage_analysis_completed_total", "Total analyses completed", analysisCompleted.Load())
	counter(&b, "triage_analysis_degraded_total", "Analyses answered by a fallback tier", analysisDegraded.Load())
	counter(&b, "triage_backend_errors_total", "Failed text backend calls", backendErrors.Load())
	analysisByStrategy.write(&b, "triage_analysis_strategy_total", "Analyses by producing strategy", "strategy")
	requestsByStatus.write(&b, "triage_http_requests_total", "HTTP requests by status class", "code")
	rateLimitedByGroup.write(&b, "triage_rate_limited_total", "Requests rejected by the rate limiter", "group")
	analysisDuration.write(&b, "triage_analysis_duration_ms", "Analysis duration in milliseconds")
	return b.String()
}

func header(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func counter(w io.Writer, name, help string, v uint64) {
	header(w, name, help, "counter")
	fmt.Fprintf(w, "%s %d\n", name, v)
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: map[string]uint64{}}
}

func (v *counterVec) inc(label string) {
	v.mu.Lock()
	v.values[label]++
	v.mu.Unlock()
}

func (v *counterVec) write(w io.Writer, name, help, label string) {
	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s{%s=%q} %d\n", name, label, k, v.values[k])
	}
	v.mu.Unlock()

	header(w, name, help, "counter")
	for _, l := range lines {
		io.WriteString(w, l)
	}
}

// histogram keeps cumulative bucket counts, as exposed.
type histogram struct {
	mu         sync.Mutex
	bounds     []float64
	cumulative []uint64
	sum        float64
	count      uint64
}

func newHistogram(bounds ...float64) *histogram {
	return &histogram{bounds: bounds, cumulative: make([]uint64, len(bounds))}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := len(h.bounds) - 1; i >= 0 && v <= h.bounds[i]; i-- {
		h.cumulative[i]++
	}
}

func (h *histogram) write(w io.Writer, name, help string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	header(w, name, help, "histogram")
	for i, bound := range h.bounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), h.cumulative[i])
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", name, h.count)
	fmt.Fprintf(w, "%s_sum %s\n", name, strconv.FormatFloat(h.sum, 'f', -1, 64))
	fmt.Fprintf(w, "%s_count %d\n", name, h.count)
}
