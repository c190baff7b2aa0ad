package triage

import (
	"context"
	"errors"
	"strings"
	"time"

	"triage-agent/internal/llm"
	"triage-agent/internal/shared/metrics"
	"triage-agent/internal/shared/telemetry"
	"triage-agent/internal/shared/util"
)

// Config carries the values the classifier needs at construction.
type Config struct {
	Version string
	Now     func() time.Time
}

// Classifier turns issues into triage results. It holds no per-request state
// and is safe for concurrent use.
type Classifier struct {
	llm     llm.Client
	version string
	now     func() time.Time
}

// NewClassifier builds a Classifier. A nil client behaves as an unconfigured backend.
func NewClassifier(client llm.Client, cfg Config) *Classifier {
	if client == nil {
		client = llm.UnconfiguredClient{}
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = DefaultAgentVersion
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Classifier{llm: client, version: version, now: now}
}

// Version returns the agent version stamped on results.
func (c *Classifier) Version() string {
	return c.version
}

// Outcome is a result together with the strategy that produced it and the
// failures of the stronger strategies tried before it.
type Outcome struct {
	Result   AnalysisResult
	Strategy Strategy
	Failures []error
}

// Degraded reports whether a fallback tier produced the result.
func (o Outcome) Degraded() bool {
	return o.Strategy != StrategyStructured
}

// Analyze returns the triage result for issue. It never fails.
func (c *Classifier) Analyze(ctx context.Context, issue IssueInput) AnalysisResult {
	return c.Classify(ctx, issue).Result
}

// Classify runs the degrade chain: structured parse of the backend reply,
// keyword extraction from the reply, then keyword analysis of the issue
// itself. The backend is called at most once.
func (c *Classifier) Classify(ctx context.Context, issue IssueInput) Outcome {
	start := time.Now()
	metrics.IncAnalysisStarted()

	prompt := BuildPrompt(issue)
	var (
		fetched  bool
		reply    string
		replyErr error
	)
	fetch := func() (string, error) {
		if !fetched {
			fetched = true
			reply, replyErr = c.llm.Complete(ctx, SystemPrompt, prompt)
			if replyErr != nil && !errors.Is(replyErr, llm.ErrNotConfigured) {
				metrics.IncBackendError()
			}
			telemetry.Debug("triage.backend.reply", map[string]any{
				"chars": len(reply),
				"error": replyErr != nil,
			})
		}
		return reply, replyErr
	}

	outcome, ok := firstSuccess(
		strategy{name: StrategyStructured, run: func() (AnalysisResult, error) {
			text, err := fetch()
			if err != nil {
				return AnalysisResult{}, err
			}
			return ParseReply(text, c.version, c.now())
		}},
		strategy{name: StrategyUnstructured, run: func() (AnalysisResult, error) {
			text, err := fetch()
			if err != nil {
				return AnalysisResult{}, errNoReply
			}
			return ExtractFromReply(text, c.version, c.now()), nil
		}},
		strategy{name: StrategyKeyword, run: func() (AnalysisResult, error) {
			return KeywordAnalysis(issue, c.version, c.now()), nil
		}},
	)
	if !ok {
		panic("triage: every strategy failed")
	}

	metrics.IncAnalysisCompleted(string(outcome.Strategy), outcome.Degraded())
	metrics.ObserveAnalysisDurationMs(metrics.Since(start))
	c.logOutcome(issue, prompt, outcome, start)
	return outcome
}

// errNoReply skips a strategy that needs a reply the backend never gave.
// The backend failure itself is already recorded by the first strategy.
var errNoReply = errors.New("no backend reply")

type strategy struct {
	name Strategy
	run  func() (AnalysisResult, error)
}

// firstSuccess runs strategies in order and returns the first result without
// an error. ok is false only when all of them fail. Skips via errNoReply are
// not recorded as failures.
func firstSuccess(strategies ...strategy) (Outcome, bool) {
	var failures []error
	for _, s := range strategies {
		result, err := s.run()
		if errors.Is(err, errNoReply) {
			continue
		}
		if err != nil {
			failures = append(failures, err)
			continue
		}
		return Outcome{Result: result, Strategy: s.name, Failures: failures}, true
	}
	return Outcome{Failures: failures}, false
}

func (c *Classifier) logOutcome(issue IssueInput, prompt string, outcome Outcome, start time.Time) {
	fields := map[string]any{
		"title":       util.Preview(issue.Title, 50),
		"repository":  issue.Repository,
		"strategy":    string(outcome.Strategy),
		"priority":    string(outcome.Result.Priority),
		"severity":    string(outcome.Result.Severity),
		"confidence":  outcome.Result.Confidence,
		"prompt_hash": util.HashPrompt(SystemPrompt, prompt),
		"duration_ms": metrics.Since(start),
	}
	if len(outcome.Failures) == 0 {
		telemetry.Info("triage.analysis", fields)
		return
	}
	fields["cause"] = classifyFailure(outcome.Failures[0])
	fields["error"] = util.SanitizeError(outcome.Failures[0])
	telemetry.Warn("triage.analysis.degraded", fields)
}

func classifyFailure(err error) string {
	var backendErr *llm.BackendError
	var parseErr *ParseError
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return "configuration"
	case errors.As(err, &backendErr):
		return "backend"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "backend"
	default:
		return "unknown"
	}
}
