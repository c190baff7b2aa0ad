package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/shared/server/respond"
	"triage-agent/internal/shared/telemetry"
	"triage-agent/internal/shared/util"
)

// Source is the read side of the GitHub API used by the handlers.
type Source interface {
	ListIssues(ctx context.Context, owner, repo string, opts ListOptions) ([]Issue, error)
	ListComments(ctx context.Context, owner, repo string, number int) ([]Comment, error)
}

// Handler exposes read-only GitHub endpoints.
type Handler struct {
	source Source
}

// NewHandler constructs a Handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes attaches the GitHub routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/repos/:owner/:repo/issues", h.listIssues)
	rg.GET("/repos/:owner/:repo/issues/:number/comments", h.listComments)
}

func (h *Handler) listIssues(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	opts := ListOptions{
		State:     c.Query("state"),
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
	}
	if raw := c.Query("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage <= 0 {
			respond.Error(c, http.StatusBadRequest, "invalid_per_page", "per_page must be a positive integer", nil)
			return
		}
		opts.PerPage = perPage
	}

	issues, err := h.source.ListIssues(c.Request.Context(), owner, repo, opts)
	if err != nil {
		h.fail(c, err, "Repository not found", "Failed to fetch issues")
		return
	}
	telemetry.Info("github.issues", map[string]any{
		"repository": owner + "/" + repo,
		"count":      len(issues),
	})
	respond.OK(c, gin.H{
		"repository":  fmt.Sprintf("%s/%s", owner, repo),
		"total_count": len(issues),
		"issues":      issues,
	})
}

func (h *Handler) listComments(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_issue_number", "issue number must be a positive integer", nil)
		return
	}

	comments, err := h.source.ListComments(c.Request.Context(), owner, repo, number)
	if err != nil {
		h.fail(c, err, "Issue not found", "Failed to fetch comments")
		return
	}
	respond.OK(c, gin.H{
		"issue_number":   number,
		"comments_count": len(comments),
		"comments":       comments,
	})
}

func (h *Handler) fail(c *gin.Context, err error, notFound, fallback string) {
	status := StatusOf(err)
	telemetry.Warn("github.error", map[string]any{
		"path":   c.Request.URL.Path,
		"status": status,
		"error":  util.SanitizeError(err),
	})
	switch status {
	case http.StatusNotFound:
		respond.Error(c, http.StatusNotFound, "not_found", notFound, nil)
	case http.StatusUnauthorized:
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid GitHub token or insufficient permissions", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "github_error", fallback, nil)
	}
}
