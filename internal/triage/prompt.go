package triage

import (
	"fmt"
	"strings"
)

const (
	// SystemPrompt frames the model for every triage request.
	SystemPrompt = "You are an expert software engineer and project manager specializing in GitHub issue triage. Analyze issues carefully and provide structured recommendations."

	maxCommentChars = 500
	unknownRepo     = "Unknown"
)

const instructions = `Please analyze this issue and provide:
1. Priority level (low/medium/high/critical)
2. Severity level (minor/moderate/major/critical)
3. Suggested labels (array of strings)
4. Brief summary (1-2 sentences)
5. Next steps (array of actionable items)
6. Confidence score (0-1)
7. Reasoning for your decisions

Respond with valid JSON in this exact format:
{
  "priority": "medium",
  "severity": "moderate",
  "suggested_labels": ["bug", "needs-investigation"],
  "summary": "Brief description of the issue",
  "next_steps": ["Action 1", "Action 2"],
  "confidence": 0.85,
  "reasoning": "Explanation of the analysis"
}`

// BuildPrompt renders an issue into the user prompt sent to the text backend.
func BuildPrompt(issue IssueInput) string {
	repo := strings.TrimSpace(issue.Repository)
	if repo == "" {
		repo = unknownRepo
	}

	var b strings.Builder
	b.WriteString("Analyze this GitHub issue for triage:\n\n")
	fmt.Fprintf(&b, "REPOSITORY: %s\n", repo)
	fmt.Fprintf(&b, "TITLE: %s\n\n", issue.Title)
	b.WriteString("DESCRIPTION:\n")
	b.WriteString(issue.Body)

	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "\n\nEXISTING LABELS: %s", strings.Join(issue.Labels, ", "))
	}

	if len(issue.Comments) > 0 {
		b.WriteString("\n\nCOMMENTS:")
		for i, comment := range issue.Comments {
			fmt.Fprintf(&b, "\n%d. %s", i+1, truncate(comment, maxCommentChars))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
