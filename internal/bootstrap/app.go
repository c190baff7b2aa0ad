package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"triage-agent/internal/github"
	"triage-agent/internal/llm"
	openai "triage-agent/internal/llm/openai"
	"triage-agent/internal/services/health"
	"triage-agent/internal/shared/config"
	"triage-agent/internal/shared/server"
	"triage-agent/internal/shared/telemetry"
	"triage-agent/internal/triage"
)

const shutdownTimeout = 10 * time.Second

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	LLM           llm.Client
	Classifier    *triage.Classifier
	GitHub        *github.Client
	Health        *health.Service
	TriageHandler *triage.Handler
	GitHubHandler *github.Handler
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	for name, raw := range map[string]string{"OPENAI_BASE_URL": cfg.OpenAIBaseURL, "GITHUB_API_URL": cfg.GitHubAPIURL} {
		if err := validateBaseURL(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	telemetry.SetLevel(cfg.LogLevel)

	app := &App{Config: cfg}
	app.LLM = BuildLLM(cfg)
	app.Classifier = triage.NewClassifier(app.LLM, triage.Config{Version: cfg.AgentVersion})
	app.Health = health.NewService(triage.AgentName, app.Classifier.Version())
	app.TriageHandler = triage.NewHandler(app.Classifier, app.Health, cfg.BatchConcurrency)

	app.GitHub = github.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if cfg.GitHubToken == "" {
		log.Printf("bootstrap: GITHUB_TOKEN empty; GitHub requests are unauthenticated")
	}
	app.GitHubHandler = github.NewHandler(app.GitHub)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		TriageHandler: app.TriageHandler,
		GitHubHandler: app.GitHubHandler,
	})
	return app, nil
}

// BuildLLM returns the OpenAI client. Without a key the client still
// constructs and reports llm.ErrNotConfigured on use.
func BuildLLM(cfg config.Config) llm.Client {
	client := openai.NewClient(openai.Options{
		APIKey:              cfg.OpenAIAPIKey,
		Model:               cfg.LLMModel,
		BaseURL:             cfg.OpenAIBaseURL,
		Timeout:             cfg.LLMTimeout,
		NoTemperatureModels: cfg.LLMNoTempModels,
	})
	log.Printf("bootstrap: llm model=%s configured=%t", client.Model(), cfg.OpenAIAPIKey != "")
	return client
}

func validateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Run serves the router until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              server.Addr(a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting %s on %s", triage.AgentName, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Printf("Shutting down %s", triage.AgentName)
	return srv.Shutdown(shutdownCtx)
}
