package triage

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a backend reply that holds no usable JSON object.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse reply: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse reply: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSONSpan returns the text from the first '{' to the last '}'.
func ExtractJSONSpan(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(reply, "}")
	if end < start {
		return "", false
	}
	return reply[start : end+1], true
}

// ParseReply converts a backend reply into a result. Only a missing or
// undecodable JSON object fails; every field has a coercion path.
func ParseReply(reply string, version string, now time.Time) (AnalysisResult, error) {
	span, ok := ExtractJSONSpan(reply)
	if !ok {
		return AnalysisResult{}, &ParseError{Reason: "no JSON object found"}
	}
	// UseNumber keeps out-of-range numbers decodable; coercion clamps them.
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return AnalysisResult{}, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return AnalysisResult{}, &ParseError{Reason: "invalid JSON", Err: errors.New("trailing data after object")}
	}
	if fields == nil {
		return AnalysisResult{}, &ParseError{Reason: "invalid JSON", Err: errors.New("not an object")}
	}

	out := AnalysisResult{
		Timestamp:    now,
		AgentVersion: version,
	}
	for _, rule := range fieldRules {
		rule.apply(fields[rule.key], &out)
	}
	return out, nil
}

type fieldRule struct {
	key   string
	apply func(raw any, out *AnalysisResult)
}

var fieldRules = []fieldRule{
	{"priority", func(raw any, out *AnalysisResult) { out.Priority = CoercePriority(raw) }},
	{"severity", func(raw any, out *AnalysisResult) { out.Severity = CoerceSeverity(raw) }},
	{"suggested_labels", func(raw any, out *AnalysisResult) { out.SuggestedLabels = CoerceStrings(raw) }},
	{"summary", func(raw any, out *AnalysisResult) { out.Summary = CoerceText(raw, DefaultSummary) }},
	{"next_steps", func(raw any, out *AnalysisResult) { out.NextSteps = CoerceStrings(raw) }},
	{"confidence", func(raw any, out *AnalysisResult) { out.Confidence = CoerceConfidence(raw) }},
	{"reasoning", func(raw any, out *AnalysisResult) { out.Reasoning = CoerceText(raw, DefaultReasoning) }},
}

// CoercePriority returns raw as a Priority, or DefaultPriority when it is not one.
func CoercePriority(raw any) Priority {
	if s, ok := raw.(string); ok {
		if p := Priority(s); p.Valid() {
			return p
		}
	}
	return DefaultPriority
}

// CoerceSeverity returns raw as a Severity, or DefaultSeverity when it is not one.
func CoerceSeverity(raw any) Severity {
	if s, ok := raw.(string); ok {
		if sev := Severity(s); sev.Valid() {
			return sev
		}
	}
	return DefaultSeverity
}

// CoerceStrings keeps the string elements of a JSON array. Anything that is
// not an array yields an empty slice.
func CoerceStrings(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CoerceText returns raw when it is a non-blank string, def otherwise.
func CoerceText(raw any, def string) string {
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var leadingNumber = regexp.MustCompile(`^[+-]?(Infinity|(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?)`)

// CoerceConfidence reads a number or a numeric-prefixed string and clamps it
// to [0,1]. Overflowing values and "Infinity" clamp to the nearest bound.
// Anything else becomes DefaultConfidence.
func CoerceConfidence(raw any) float64 {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case json.Number:
		f, err := v.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return DefaultConfidence
		}
		value = f
	case string:
		match := leadingNumber.FindString(strings.TrimSpace(v))
		if match == "" {
			return DefaultConfidence
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return DefaultConfidence
		}
		value = f
	default:
		return DefaultConfidence
	}
	if math.IsNaN(value) {
		return DefaultConfidence
	}
	return clamp01(value)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
