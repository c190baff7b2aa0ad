package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts chat-completion providers used for issue triage.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrNotConfigured is returned when no credential is available for the provider.
// No network call is attempted in that case.
var ErrNotConfigured = errors.New("llm credential not configured")

// BackendError reports a transport failure or a non-2xx reply from the provider.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm backend status %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("llm backend: %s: %v", e.Message, e.Err)
	}
	return "llm backend: " + e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, system, prompt string) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// UnconfiguredClient always fails with ErrNotConfigured.
type UnconfiguredClient struct{}

// Complete returns ErrNotConfigured.
func (UnconfiguredClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	_ = ctx
	_ = system
	_ = prompt
	return "", ErrNotConfigured
}
