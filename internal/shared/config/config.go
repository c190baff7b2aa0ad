package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	LogLevel         string
	CORSAllowOrigin  []string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	LLMModel         string
	LLMTimeout       time.Duration
	LLMNoTempModels  []string
	AgentVersion     string
	GitHubToken      string
	GitHubAPIURL     string
	RateLimitWindow  time.Duration
	RateLimitMax     int
	BatchConcurrency int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		log.Printf("OPENAI_API_KEY not set; triage will use keyword analysis only")
	}

	return Config{
		Port:             getEnv("PORT", getEnv("AGENT_PORT", "3001")),
		Env:              env,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", getEnv("FRONTEND_URL", "http://localhost:5173"))),
		OpenAIAPIKey:     apiKey,
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:         getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTimeout:       time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 30)) * time.Second,
		LLMNoTempModels:  splitAndTrim(os.Getenv("LLM_NO_TEMP0_MODELS")),
		AgentVersion:     getEnv("AGENT_VERSION", "1.0.0"),
		GitHubToken:      strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubAPIURL:     getEnv("GITHUB_API_URL", "https://api.github.com"),
		RateLimitWindow:  time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute,
		RateLimitMax:     getEnvInt("RATE_LIMIT_MAX", 100),
		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 3),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt returns def when the variable is unset, unparsable or not positive.
func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
