package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.github.com"
	defaultTimeout = 15 * time.Second
	defaultPerPage = 5
	maxPerPage     = 100
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github status %d", e.StatusCode)
	}
	return fmt.Sprintf("github status %d: %s", e.StatusCode, e.Message)
}

// StatusOf returns the GitHub status code carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// User is the subset of a GitHub account exposed to callers.
type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Label is a GitHub issue label.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Issue is a repository issue, pull requests excluded.
type Issue struct {
	ID            int64     `json:"id"`
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	State         string    `json:"state"`
	Labels        []Label   `json:"labels"`
	User          User      `json:"user"`
	Assignees     []User    `json:"assignees"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CommentsCount int       `json:"comments_count"`
	HTMLURL       string    `json:"html_url"`
}

// LabelNames returns the names of the issue's labels.
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return names
}

// Comment is an issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type apiIssue struct {
	ID          int64           `json:"id"`
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Body        *string         `json:"body"`
	State       string          `json:"state"`
	Labels      []Label         `json:"labels"`
	User        User            `json:"user"`
	Assignees   []User          `json:"assignees"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Comments    int             `json:"comments"`
	HTMLURL     string          `json:"html_url"`
	PullRequest json.RawMessage `json:"pull_request"`
}

func (a apiIssue) toIssue() Issue {
	issue := Issue{
		ID:            a.ID,
		Number:        a.Number,
		Title:         a.Title,
		State:         a.State,
		Labels:        a.Labels,
		User:          a.User,
		Assignees:     a.Assignees,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		CommentsCount: a.Comments,
		HTMLURL:       a.HTMLURL,
	}
	if a.Body != nil {
		issue.Body = *a.Body
	}
	if issue.Labels == nil {
		issue.Labels = []Label{}
	}
	if issue.Assignees == nil {
		issue.Assignees = []User{}
	}
	return issue
}

// ListOptions filters an issue listing.
type ListOptions struct {
	State     string
	PerPage   int
	Sort      string
	Direction string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	q.Set("state", firstNonEmpty(o.State, "open"))
	perPage := o.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort", firstNonEmpty(o.Sort, "updated"))
	q.Set("direction", firstNonEmpty(o.Direction, "desc"))
	return q
}

// Client reads issues and comments from the GitHub REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client. A non-empty token is attached to every request
// through an oauth2 static token source; an empty token sends requests
// unauthenticated.
func NewClient(token, baseURL string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := &http.Client{}
	if token = strings.TrimSpace(token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = defaultTimeout
	return &Client{baseURL: base, http: httpClient}
}

// ListIssues returns the repository's issues, skipping pull requests.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, opts ListOptions) ([]Issue, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues?%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), opts.query().Encode())
	var raw []apiIssue
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(raw))
	for _, item := range raw {
		if len(item.PullRequest) > 0 && string(item.PullRequest) != "null" {
			continue
		}
		issues = append(issues, item.toIssue())
	}
	return issues, nil
}

// GetIssue returns a single issue.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (Issue, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	var raw apiIssue
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return Issue{}, err
	}
	return raw.toIssue(), nil
}

// ListComments returns the comments on an issue.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	var comments []Comment
	if err := c.get(ctx, endpoint, &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read github response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

func firstNonEmpty(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
