package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"triage-agent/internal/triage"
)

var (
	version = "dev" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "AI-assisted GitHub issue triage",
		Long: `triage classifies GitHub issues by priority and severity, suggests labels
and next steps, and falls back to keyword analysis when no language model is
available.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "triage version %s (agent %s)\n", version, triage.DefaultAgentVersion)
		},
	}
}
