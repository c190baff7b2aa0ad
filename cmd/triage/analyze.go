package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"triage-agent/internal/bootstrap"
	"triage-agent/internal/github"
	"triage-agent/internal/render"
	"triage-agent/internal/shared/config"
	"triage-agent/internal/shared/telemetry"
	"triage-agent/internal/triage"
)

type analyzeOptions struct {
	title    string
	body     string
	comments []string
	labels   []string
	repo     string
	file     string
	issue    int
	output   string
	quiet    bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Triage a single issue",
		Long: `Analyze one issue and print its priority, severity, labels and next steps.

Examples:
  # Inline issue
  triage analyze --title "Crash on save" --body "app crashes when clicking save"

  # Issue described in a YAML or JSON file
  triage analyze -f issue.yaml -o json

  # Issue fetched from GitHub
  triage analyze --repo acme/app --issue 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Issue title")
	cmd.Flags().StringVar(&opts.body, "body", "", "Issue description")
	cmd.Flags().StringArrayVar(&opts.comments, "comment", nil, "Issue comment (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.labels, "label", "l", nil, "Existing labels")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Repository as owner/repo")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read the issue from a YAML or JSON file")
	cmd.Flags().IntVar(&opts.issue, "issue", 0, "Fetch issue number from GitHub (requires --repo)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", render.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide progress output")
	return cmd
}

func runAnalyze(ctx context.Context, opts *analyzeOptions, stdout, stderr io.Writer) error {
	// stdout carries only the result.
	logOut := stderr
	if opts.quiet {
		logOut = io.Discard
	}
	defer telemetry.SetOutput(logOut)()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	issue, err := resolveIssue(ctx, cfg, opts)
	if err != nil {
		return err
	}
	if strings.TrimSpace(issue.Title) == "" || strings.TrimSpace(issue.Body) == "" {
		return errors.New("title and body are required (use --title/--body, --file, or --repo with --issue)")
	}

	classifier := triage.NewClassifier(bootstrap.BuildLLM(cfg), triage.Config{Version: cfg.AgentVersion})

	var s *spinner.Spinner
	if !opts.quiet {
		s = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(stderr))
		s.Suffix = " Analyzing issue..."
		s.Start()
	}
	outcome := classifier.Classify(ctx, issue)
	if s != nil {
		s.Stop()
	}

	if outcome.Degraded() && !opts.quiet {
		fmt.Fprintf(stderr, "%s\n", color.YellowString("note: %s fallback used; results are approximate", outcome.Strategy))
	}
	return render.Result(stdout, outcome.Result, opts.output)
}

func resolveIssue(ctx context.Context, cfg config.Config, opts *analyzeOptions) (triage.IssueInput, error) {
	var issue triage.IssueInput
	switch {
	case opts.file != "":
		loaded, err := loadIssueFile(opts.file)
		if err != nil {
			return issue, err
		}
		issue = loaded
	case opts.issue > 0:
		owner, name, ok := splitRepo(opts.repo)
		if !ok {
			return issue, fmt.Errorf("--issue requires --repo in owner/repo form, got %q", opts.repo)
		}
		fetched, err := fetchIssue(ctx, github.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL), owner, name, opts.issue)
		if err != nil {
			return issue, err
		}
		issue = fetched
	}

	// Flags override whatever the file or GitHub provided.
	if opts.title != "" {
		issue.Title = opts.title
	}
	if opts.body != "" {
		issue.Body = opts.body
	}
	if len(opts.comments) > 0 {
		issue.Comments = opts.comments
	}
	if len(opts.labels) > 0 {
		issue.Labels = opts.labels
	}
	if opts.repo != "" {
		issue.Repository = opts.repo
	}
	return issue, nil
}

// loadIssueFile reads an issue from YAML. JSON files parse as YAML too.
func loadIssueFile(path string) (triage.IssueInput, error) {
	var issue triage.IssueInput
	data, err := os.ReadFile(path)
	if err != nil {
		return issue, fmt.Errorf("read issue file: %w", err)
	}
	if err := yaml.Unmarshal(data, &issue); err != nil {
		return issue, fmt.Errorf("parse issue file %s: %w", path, err)
	}
	return issue, nil
}

type issueFetcher interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (github.Issue, error)
	ListComments(ctx context.Context, owner, repo string, number int) ([]github.Comment, error)
}

func fetchIssue(ctx context.Context, gh issueFetcher, owner, repo string, number int) (triage.IssueInput, error) {
	issue, err := gh.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return triage.IssueInput{}, fmt.Errorf("fetch issue %s/%s#%d: %w", owner, repo, number, err)
	}
	var comments []string
	if issue.CommentsCount > 0 {
		list, err := gh.ListComments(ctx, owner, repo, number)
		if err != nil {
			return triage.IssueInput{}, fmt.Errorf("fetch comments %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, c := range list {
			comments = append(comments, c.Body)
		}
	}
	return triage.IssueInput{
		Title:      issue.Title,
		Body:       issue.Body,
		Comments:   comments,
		Labels:     issue.LabelNames(),
		Repository: owner + "/" + repo,
	}, nil
}

func splitRepo(full string) (string, string, bool) {
	owner, repo, found := strings.Cut(strings.TrimSpace(full), "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
