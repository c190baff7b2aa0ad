package triage

import (
	"fmt"
	"strings"
	"time"
)

const needsTriageLabel = "needs-triage"

var (
	urgentKeywords  = []string{"critical", "urgent", "broken", "crash"}
	bugKeywords     = []string{"bug", "error", "issue", "problem"}
	featureKeywords = []string{"feature", "enhancement", "request"}
)

// ExtractFromReply salvages priority and severity from a reply that carried
// no parsable JSON. It never fails.
func ExtractFromReply(reply string, version string, now time.Time) AnalysisResult {
	text := strings.ToLower(reply)

	priority := PriorityMedium
	switch {
	case containsAny(text, "critical", "urgent"):
		priority = PriorityCritical
	case strings.Contains(text, "high"):
		priority = PriorityHigh
	case strings.Contains(text, "low"):
		priority = PriorityLow
	}

	severity := SeverityModerate
	switch {
	case strings.Contains(text, "critical"):
		severity = SeverityCritical
	case strings.Contains(text, "major"):
		severity = SeverityMajor
	case strings.Contains(text, "minor"):
		severity = SeverityMinor
	}

	return AnalysisResult{
		Priority:        priority,
		Severity:        severity,
		SuggestedLabels: []string{needsTriageLabel},
		Summary:         "Issue analysis completed with limited parsing",
		NextSteps:       []string{"Review issue manually", "Apply appropriate labels"},
		Confidence:      UnstructuredConfidence,
		Reasoning:       "Fallback analysis due to parsing issues",
		Timestamp:       now,
		AgentVersion:    version,
	}
}

// KeywordAnalysis classifies an issue from its title and body alone. It is the
// terminal fallback and never calls the backend.
//
// Feature keywords are checked after urgent keywords and reassign priority and
// severity unconditionally, so "urgent feature request" ends up low/minor.
func KeywordAnalysis(issue IssueInput, version string, now time.Time) AnalysisResult {
	text := strings.ToLower(issue.Title + " " + issue.Body)

	priority := PriorityMedium
	severity := SeverityModerate
	labels := []string{needsTriageLabel}

	if containsAny(text, urgentKeywords...) {
		priority = PriorityHigh
		severity = SeverityMajor
	}
	if containsAny(text, bugKeywords...) {
		labels = append(labels, "bug")
	}
	if containsAny(text, featureKeywords...) {
		labels = append(labels, "enhancement")
		priority = PriorityLow
		severity = SeverityMinor
	}

	return AnalysisResult{
		Priority:        priority,
		Severity:        severity,
		SuggestedLabels: labels,
		Summary:         fmt.Sprintf("Issue titled \"%s\" requires manual review", issue.Title),
		NextSteps: []string{
			"Review issue details manually",
			"Assign appropriate priority",
			"Add relevant labels",
		},
		Confidence:   KeywordConfidence,
		Reasoning:    "Fallback analysis - AI service unavailable",
		Timestamp:    now,
		AgentVersion: version,
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
