package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "AGENT_PORT", "ENV", "OPENAI_API_KEY", "LLM_MODEL", "OPENAI_TIMEOUT_SECONDS", "AGENT_VERSION", "RATE_LIMIT_MAX", "BATCH_CONCURRENCY", "CORS_ALLOW_ORIGINS", "FRONTEND_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "3001" {
		t.Fatalf("expected port 3001, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.LLMModel != "gpt-3.5-turbo" {
		t.Fatalf("unexpected model %q", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.LLMTimeout)
	}
	if cfg.AgentVersion != "1.0.0" {
		t.Fatalf("unexpected version %q", cfg.AgentVersion)
	}
	if cfg.RateLimitMax != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit %d per %v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if diff := cmp.Diff([]string{"http://localhost:5173"}, cfg.CORSAllowOrigin); diff != "" {
		t.Fatalf("unexpected CORS origins (-want +got):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "PROD")
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("OPENAI_TIMEOUT_SECONDS", "12")
	t.Setenv("BATCH_CONCURRENCY", "nope")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	if cfg.Port != "9000" || cfg.Env != "production" {
		t.Fatalf("unexpected port/env %q/%q", cfg.Port, cfg.Env)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatalf("expected trimmed key, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.LLMTimeout != 12*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.LLMTimeout)
	}
	if cfg.BatchConcurrency != 3 {
		t.Fatalf("expected invalid concurrency to fall back to 3, got %d", cfg.BatchConcurrency)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin); diff != "" {
		t.Fatalf("unexpected CORS origins (-want +got):\n%s", diff)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nTRIAGE_TEST_KEY=\"quoted value\"\nBROKEN_LINE\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TRIAGE_TEST_KEY", "")

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))
	if got := os.Getenv("TRIAGE_TEST_KEY"); got != "quoted value" {
		t.Fatalf("expected value from env file, got %q", got)
	}
}

func TestLoadCORSFallsBackToFrontendURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "https://triage.example")

	cfg := Load()
	if diff := cmp.Diff([]string{"https://triage.example"}, cfg.CORSAllowOrigin); diff != "" {
		t.Fatalf("unexpected CORS origins (-want +got):\n%s", diff)
	}
}
