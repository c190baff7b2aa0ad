package triage

import (
	"encoding/json"
	"strings"
)

// analyzeRequest is the JSON body accepted by the analyze endpoints. Comments
// and labels are decoded leniently: non-arrays become empty and labels may be
// strings or {"name": ...} objects as the GitHub API returns them.
type analyzeRequest struct {
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Comments    json.RawMessage `json:"comments"`
	Labels      json.RawMessage `json:"labels"`
	Repository  string          `json:"repository"`
	IssueNumber json.RawMessage `json:"issue_number"`
	Number      json.RawMessage `json:"number"`
}

func (r analyzeRequest) missingFields() []string {
	var missing []string
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	return missing
}

func (r analyzeRequest) issue() IssueInput {
	return IssueInput{
		Title:      r.Title,
		Body:       r.Body,
		Comments:   decodeStrings(r.Comments),
		Labels:     decodeLabels(r.Labels),
		Repository: strings.TrimSpace(r.Repository),
	}
}

// issueNumber returns issue_number, falling back to number, as a plain JSON value.
func (r analyzeRequest) issueNumber() any {
	for _, raw := range []json.RawMessage{r.IssueNumber, r.Number} {
		if len(raw) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err == nil && v != nil {
			return v
		}
	}
	return nil
}

func decodeStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	out := CoerceStrings(v)
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeLabels(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok && name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
