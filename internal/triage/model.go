package triage

import "time"

// Priority is the urgency assigned to an issue.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Severity is the impact assigned to an issue.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// IssueInput is the normalized issue handed to the classifier.
type IssueInput struct {
	Title      string   `json:"title" yaml:"title"`
	Body       string   `json:"body" yaml:"body"`
	Comments   []string `json:"comments,omitempty" yaml:"comments,omitempty"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Repository string   `json:"repository,omitempty" yaml:"repository,omitempty"`
}

// AnalysisResult is the triage judgment returned for one issue.
type AnalysisResult struct {
	Priority        Priority  `json:"priority" yaml:"priority"`
	Severity        Severity  `json:"severity" yaml:"severity"`
	SuggestedLabels []string  `json:"suggested_labels" yaml:"suggested_labels"`
	Summary         string    `json:"summary" yaml:"summary"`
	NextSteps       []string  `json:"next_steps" yaml:"next_steps"`
	Confidence      float64   `json:"confidence" yaml:"confidence"`
	Reasoning       string    `json:"reasoning" yaml:"reasoning"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	AgentVersion    string    `json:"agent_version" yaml:"agent_version"`
}

// Strategy names the tier that produced a result.
type Strategy string

const (
	StrategyStructured   Strategy = "structured"
	StrategyUnstructured Strategy = "unstructured"
	StrategyKeyword      Strategy = "keyword"
)

const (
	DefaultPriority = PriorityMedium
	DefaultSeverity = SeverityModerate

	DefaultConfidence      = 0.5
	UnstructuredConfidence = 0.3
	KeywordConfidence      = 0.2

	DefaultSummary   = "No summary provided"
	DefaultReasoning = "No reasoning provided"

	DefaultAgentVersion = "1.0.0"
)
