package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"triage-agent/internal/triage"
)

// Formats accepted by Result.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Result writes an analysis in the requested format.
func Result(w io.Writer, result triage.AnalysisResult, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatHuman, "":
		writeHuman(w, result)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want human, json or yaml)", format)
	}
}

func writeJSON(w io.Writer, result triage.AnalysisResult) error {
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeYAML(w io.Writer, result triage.AnalysisResult) error {
	output, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

func writeHuman(w io.Writer, result triage.AnalysisResult) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "TRIAGE RESULT")
	fmt.Fprintf(w, "   Priority:   %s\n", priorityColor(result.Priority).Sprint(strings.ToUpper(string(result.Priority))))
	fmt.Fprintf(w, "   Severity:   %s\n", severityColor(result.Severity).Sprint(strings.ToUpper(string(result.Severity))))
	fmt.Fprintf(w, "   Confidence: %s\n\n", confidenceColor(result.Confidence).Sprintf("%.0f%%", result.Confidence*100))

	white.Fprintln(w, "SUMMARY:")
	fmt.Fprintf(w, "   %s\n\n", result.Summary)

	if len(result.SuggestedLabels) > 0 {
		white.Fprintln(w, "LABELS:")
		fmt.Fprintf(w, "   %s\n\n", color.CyanString(strings.Join(result.SuggestedLabels, ", ")))
	}

	if len(result.NextSteps) > 0 {
		white.Fprintln(w, "NEXT STEPS:")
		for i, step := range result.NextSteps {
			fmt.Fprintf(w, "   %d. %s\n", i+1, step)
		}
		fmt.Fprintln(w)
	}

	white.Fprintln(w, "REASONING:")
	fmt.Fprintf(w, "   %s\n\n", result.Reasoning)

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%s\n", color.HiBlackString("agent %s, %s. Run with -o json or -o yaml for machine-readable output",
		result.AgentVersion, result.Timestamp.Format("2006-01-02 15:04:05 MST")))
}

func priorityColor(p triage.Priority) *color.Color {
	switch p {
	case triage.PriorityCritical:
		return color.New(color.FgRed, color.Bold)
	case triage.PriorityHigh:
		return color.New(color.FgRed)
	case triage.PriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func severityColor(s triage.Severity) *color.Color {
	switch s {
	case triage.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case triage.SeverityMajor:
		return color.New(color.FgRed)
	case triage.SeverityModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// Low confidence marks a fallback result.
func confidenceColor(c float64) *color.Color {
	switch {
	case c <= triage.UnstructuredConfidence:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
