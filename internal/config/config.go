package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig                            `yaml:"server"`
	Routing   RoutingConfig                           `yaml:"routing"`
	Admission admission.ControllerConfig              `yaml:"admission"`
	Execution ExecutionConfig                         `yaml:"execution"`
	Providers map[string]providers.HTTPProviderConfig `yaml:"providers"`
	Logging   LoggingConfig                           `yaml:"logging"`
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// RoutingConfig holds provider-selection configuration
type RoutingConfig struct {
	// LLMScoringEnabled turns tier-3 LLM-assisted scoring on
	LLMScoringEnabled bool `yaml:"llm_scoring_enabled"`

	// ScorerBackend selects the tier-3 scorer: "heuristic", "openai" or
	// "anthropic"
	ScorerBackend string `yaml:"scorer_backend"`

	// ScoreCacheTTL bounds how long a feature-hash score entry is reused
	ScoreCacheTTL time.Duration `yaml:"score_cache_ttl"`

	// Scorer holds credentials and model selection for LLM backends
	Scorer scoring.LLMScorerConfig `yaml:"scorer"`
}

// ExecutionConfig holds timeout and cascade policy
type ExecutionConfig struct {
	Timeout execution.TimeoutConfig `yaml:"timeout"`
	Cascade execution.CascadePolicy `yaml:"cascade"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// Scorer backend names accepted by RoutingConfig.ScorerBackend.
const (
	ScorerHeuristic = "heuristic"
	ScorerOpenAI    = "openai"
	ScorerAnthropic = "anthropic"
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.setDefaults()

	// Load from file if provided
	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() {
	c.Server = ServerConfig{
		Port:           "8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	c.Routing = RoutingConfig{
		LLMScoringEnabled: false,
		ScorerBackend:     ScorerHeuristic,
		ScoreCacheTTL:     5 * time.Minute,
	}

	c.Admission = admission.ControllerConfig{
		Breaker: admission.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 60 * time.Second,
		},
		GlobalRateLimit: admission.RateLimitConfig{
			RequestsPerMinute: 300,
			RequestsPerHour:   5000,
			RequestsPerDay:    50000,
			MaxConcurrent:     50,
			Cooldown:          5 * time.Second,
		},
		DefaultRateLimit: admission.RateLimitConfig{
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			RequestsPerDay:    10000,
			MaxConcurrent:     10,
			Cooldown:          5 * time.Second,
		},
		DefaultBudget: admission.BudgetConfig{
			PerQueryCap: 0.10,
			DailyCap:    25.0,
			MonthlyCap:  500.0,
			Enforce:     true,
		},
	}

	c.Execution = ExecutionConfig{
		Timeout: execution.DefaultTimeoutConfig(),
		Cascade: execution.DefaultCascadePolicy(),
	}

	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// loadFromFile loads configuration from YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("SEARCH_ROUTER_PORT"); port != "" {
		c.Server.Port = port
	}

	if level := os.Getenv("SEARCH_ROUTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if format := os.Getenv("SEARCH_ROUTER_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	if backend := os.Getenv("SEARCH_ROUTER_SCORER_BACKEND"); backend != "" {
		c.Routing.ScorerBackend = backend
	}

	// Provider API keys are only ever read from the environment, keyed as
	// <NAME>_API_KEY
	for name, provider := range c.Providers {
		if key := os.Getenv(strings.ToUpper(name) + "_API_KEY"); key != "" {
			provider.APIKey = key
			c.Providers[name] = provider
		}
	}

	// Scorer API keys are only ever read from the environment
	switch c.Routing.ScorerBackend {
	case ScorerOpenAI:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Routing.Scorer.APIKey = key
		}
	case ScorerAnthropic:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			c.Routing.Scorer.APIKey = key
		}
	}
}

// validate checks configuration consistency
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	switch c.Routing.ScorerBackend {
	case ScorerHeuristic, ScorerOpenAI, ScorerAnthropic:
	default:
		return fmt.Errorf("unknown scorer backend: %q", c.Routing.ScorerBackend)
	}

	if c.Routing.LLMScoringEnabled && c.Routing.ScorerBackend != ScorerHeuristic && c.Routing.Scorer.APIKey == "" {
		return fmt.Errorf("scorer backend %q requires an API key", c.Routing.ScorerBackend)
	}

	if c.Routing.ScoreCacheTTL <= 0 {
		return fmt.Errorf("score cache TTL must be positive")
	}

	if c.Admission.Breaker.MaxFailures <= 0 {
		return fmt.Errorf("circuit breaker max_failures must be positive")
	}
	if c.Admission.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("circuit breaker reset_timeout must be positive")
	}

	if err := validateRateLimit("global_rate_limit", c.Admission.GlobalRateLimit); err != nil {
		return err
	}
	if err := validateRateLimit("default_rate_limit", c.Admission.DefaultRateLimit); err != nil {
		return err
	}
	for name, rl := range c.Admission.RateLimits {
		if err := validateRateLimit("rate_limits."+name, rl); err != nil {
			return err
		}
	}

	if err := validateBudget("default_budget", c.Admission.DefaultBudget); err != nil {
		return err
	}
	for name, b := range c.Admission.Budgets {
		if err := validateBudget("budgets."+name, b); err != nil {
			return err
		}
	}

	if c.Execution.Timeout.Base <= 0 {
		return fmt.Errorf("execution timeout base must be positive")
	}
	if c.Execution.Timeout.Min > c.Execution.Timeout.Max && c.Execution.Timeout.Max > 0 {
		return fmt.Errorf("execution timeout min exceeds max")
	}
	if c.Execution.Cascade.SecondaryDelay < 0 {
		return fmt.Errorf("cascade secondary_delay cannot be negative")
	}

	for name, provider := range c.Providers {
		if provider.Endpoint == "" {
			return fmt.Errorf("providers.%s: endpoint is required", name)
		}
		if provider.CostPerQuery < 0 {
			return fmt.Errorf("providers.%s: cost_per_query cannot be negative", name)
		}
	}

	return nil
}

func validateRateLimit(name string, rl admission.RateLimitConfig) error {
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.RequestsPerDay < 0 {
		return fmt.Errorf("%s: window limits cannot be negative", name)
	}
	if rl.MaxConcurrent < 0 {
		return fmt.Errorf("%s: max_concurrent cannot be negative", name)
	}
	return nil
}

func validateBudget(name string, b admission.BudgetConfig) error {
	if b.PerQueryCap < 0 || b.DailyCap < 0 || b.MonthlyCap < 0 {
		return fmt.Errorf("%s: budget caps cannot be negative", name)
	}
	return nil
}
