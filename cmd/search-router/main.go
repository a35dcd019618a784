package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/config"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/routing"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/server"
)

// Application represents the main application
type Application struct {
	config *config.Config
	server *server.Server
	logger *logrus.Logger
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := logrus.New()
	if err := setupLogger(logger, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	// Build the provider registry
	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	// Admission control: one breaker/limiter/budget per provider plus the
	// global limiter
	controller := admission.NewController(cfg.Admission, logger)

	// Scoring
	metricsStore := scoring.NewMetricsStore()
	calculator := scoring.NewCalculator(metricsStore, logger)
	optimizer := scoring.NewCostOptimizer(logger)

	scorer, err := buildScorer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider scorer: %w", err)
	}

	// Execution strategies share the registry, controller and metrics store
	parallel := execution.NewParallelStrategy(registry, controller, metricsStore, cfg.Execution.Timeout, logger)
	cascade := execution.NewCascadeStrategy(registry, controller, metricsStore, cfg.Execution.Timeout, cfg.Execution.Cascade, logger)

	// Routers
	routerMetrics := routing.NewRouterMetrics(prometheus.DefaultRegisterer)
	pattern := routing.NewPatternRouter(logger)
	scored := routing.NewScoredRouter(scorer, pattern, cfg.Routing.LLMScoringEnabled, logger)
	hybrid := routing.NewHybridRouter(registry, scored, parallel, cascade, routerMetrics, logger)
	unified := routing.NewUnifiedRouter(registry, controller, calculator, optimizer, parallel, cascade, routerMetrics, logger)

	serverInstance := server.NewServer(hybrid, unified, registry, controller, routerMetrics, &server.Config{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}, logger)

	return &Application{
		config: cfg,
		server: serverInstance,
		logger: logger,
	}, nil
}

// Run starts the application
func (app *Application) Run() error {
	app.logger.Info("Starting search router")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.WithField("address", ":"+app.config.Server.Port).Info("HTTP server starting")
		if err := app.server.Start(); err != nil {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		app.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	app.logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Server shutdown error")
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(logger *logrus.Logger, config config.LoggingConfig) error {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	logger.SetLevel(level)

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format: %s", config.Format)
	}

	switch config.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		// Assume it's a file path
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", config.Output, err)
		}
		logger.SetOutput(file)
	}

	return nil
}

// buildRegistry creates one HTTP provider per configured backend
func buildRegistry(cfg *config.Config, logger *logrus.Logger) (providers.Registry, error) {
	registry := providers.Registry{}

	for name, providerCfg := range cfg.Providers {
		registry[name] = providers.NewHTTPProvider(name, providerCfg, logger)
		logger.WithFields(logrus.Fields{
			"provider": name,
			"endpoint": providerCfg.Endpoint,
		}).Info("Provider registered")
	}

	if len(registry) == 0 {
		return nil, fmt.Errorf("no providers were registered - check your configuration")
	}

	logger.WithField("count", len(registry)).Info("Provider registration completed")
	return registry, nil
}

// buildScorer assembles the tier-3 scorer behind the feature-hash cache
func buildScorer(cfg *config.Config, logger *logrus.Logger) (scoring.ProviderScorer, error) {
	var scorer scoring.ProviderScorer
	switch cfg.Routing.ScorerBackend {
	case config.ScorerHeuristic:
		scorer = scoring.NewHeuristicScorer()
	case config.ScorerOpenAI:
		scorer = scoring.NewOpenAIScorer(cfg.Routing.Scorer, logger)
	case config.ScorerAnthropic:
		scorer = scoring.NewAnthropicScorer(cfg.Routing.Scorer, logger)
	default:
		return nil, fmt.Errorf("unknown scorer backend: %q", cfg.Routing.ScorerBackend)
	}

	cache := scoring.NewScoreCache(cfg.Routing.ScoreCacheTTL)
	return scoring.NewCachedScorer(scorer, cache), nil
}

// printUsage prints application usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
	fmt.Fprintf(os.Stderr, "  <PROVIDER>_API_KEY            API key per configured provider\n")
	fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY                OpenAI scorer API key\n")
	fmt.Fprintf(os.Stderr, "  ANTHROPIC_API_KEY             Anthropic scorer API key\n")
	fmt.Fprintf(os.Stderr, "  SEARCH_ROUTER_PORT            Server port (default: 8080)\n")
	fmt.Fprintf(os.Stderr, "  SEARCH_ROUTER_LOG_LEVEL       Log level (debug,info,warn,error,fatal)\n")
	fmt.Fprintf(os.Stderr, "  SEARCH_ROUTER_LOG_FORMAT      Log format (json,text)\n")
	fmt.Fprintf(os.Stderr, "  SEARCH_ROUTER_SCORER_BACKEND  Tier-3 scorer (heuristic,openai,anthropic)\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --config configs/config.yaml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  TAVILY_API_KEY=tvly-xxx %s --config configs/config.yaml\n", os.Args[0])
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		showHelp   = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *version {
		fmt.Printf("Search Router v1.0.0\n")
		os.Exit(0)
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
