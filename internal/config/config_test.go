package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", cfg.Server.Port)
	}

	if cfg.Routing.ScorerBackend != ScorerHeuristic {
		t.Errorf("Expected default scorer backend 'heuristic', got %s", cfg.Routing.ScorerBackend)
	}

	if cfg.Routing.LLMScoringEnabled {
		t.Error("LLM scoring should be disabled by default")
	}

	if cfg.Routing.ScoreCacheTTL != 5*time.Minute {
		t.Errorf("Expected default score cache TTL 5m, got %v", cfg.Routing.ScoreCacheTTL)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.Logging.Level)
	}

	if cfg.Admission.Breaker.MaxFailures != 5 {
		t.Errorf("Expected default breaker max_failures 5, got %d", cfg.Admission.Breaker.MaxFailures)
	}

	if !cfg.Admission.DefaultBudget.Enforce {
		t.Error("Default budget should be enforced")
	}

	if cfg.Execution.Timeout.Base != 8*time.Second {
		t.Errorf("Expected default timeout base 8s, got %v", cfg.Execution.Timeout.Base)
	}
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	os.Setenv("SEARCH_ROUTER_PORT", "9090")
	os.Setenv("SEARCH_ROUTER_LOG_LEVEL", "debug")
	os.Setenv("SEARCH_ROUTER_LOG_FORMAT", "text")

	defer func() {
		os.Unsetenv("SEARCH_ROUTER_PORT")
		os.Unsetenv("SEARCH_ROUTER_LOG_LEVEL")
		os.Unsetenv("SEARCH_ROUTER_LOG_FORMAT")
	}()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port '9090', got %s", cfg.Server.Port)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got %s", cfg.Logging.Level)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected log format 'text', got %s", cfg.Logging.Format)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	content := `
server:
  port: "7070"
routing:
  score_cache_ttl: 2m
admission:
  circuit_breaker:
    max_failures: 3
    reset_timeout: 30s
  rate_limits:
    newsapi:
      requests_per_minute: 10
      max_concurrent: 2
      cooldown: 1s
  budgets:
    newsapi:
      per_query_cap: 0.05
      daily_cap: 5.0
      enforce: true
execution:
  cascade:
    secondary_delay: 250ms
    min_successful_providers: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port '7070', got %s", cfg.Server.Port)
	}

	if cfg.Routing.ScoreCacheTTL != 2*time.Minute {
		t.Errorf("Expected score cache TTL 2m, got %v", cfg.Routing.ScoreCacheTTL)
	}

	if cfg.Admission.Breaker.MaxFailures != 3 {
		t.Errorf("Expected breaker max_failures 3, got %d", cfg.Admission.Breaker.MaxFailures)
	}

	rl, ok := cfg.Admission.RateLimits["newsapi"]
	if !ok {
		t.Fatal("Expected a newsapi rate limit entry")
	}
	if rl.RequestsPerMinute != 10 || rl.MaxConcurrent != 2 {
		t.Errorf("Unexpected newsapi rate limit: %+v", rl)
	}

	budget, ok := cfg.Admission.Budgets["newsapi"]
	if !ok {
		t.Fatal("Expected a newsapi budget entry")
	}
	if budget.PerQueryCap != 0.05 || !budget.Enforce {
		t.Errorf("Unexpected newsapi budget: %+v", budget)
	}

	if cfg.Execution.Cascade.SecondaryDelay != 250*time.Millisecond {
		t.Errorf("Expected secondary delay 250ms, got %v", cfg.Execution.Cascade.SecondaryDelay)
	}
	if cfg.Execution.Cascade.MinSuccessfulProviders != 2 {
		t.Errorf("Expected min successful providers 2, got %d", cfg.Execution.Cascade.MinSuccessfulProviders)
	}

	// untouched sections keep defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadConfig_InvalidScorerBackend(t *testing.T) {
	os.Setenv("SEARCH_ROUTER_SCORER_BACKEND", "mystery")
	defer os.Unsetenv("SEARCH_ROUTER_SCORER_BACKEND")

	_, err := LoadConfig("")
	if err == nil {
		t.Error("Expected error for unknown scorer backend")
	}
}

func TestLoadConfig_LLMBackendRequiresKey(t *testing.T) {
	content := `
routing:
  llm_scoring_enabled: true
  scorer_backend: openai
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	os.Unsetenv("OPENAI_API_KEY")

	_, err := LoadConfig(path)
	if err == nil {
		t.Error("Expected error when LLM backend has no API key")
	}
}

func TestLoadConfig_NegativeBudgetRejected(t *testing.T) {
	content := `
admission:
  default_budget:
    per_query_cap: -1.0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Error("Expected error for negative budget cap")
	}
}
