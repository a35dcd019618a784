package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

// stubProvider satisfies providers.SearchProvider with canned behavior.
type stubProvider struct {
	name string
	cost float64
	fail bool
}

func (p *stubProvider) Search(ctx context.Context, query *types.SearchQuery) (*types.SearchResponse, error) {
	if p.fail {
		return nil, errors.New("stub failure")
	}
	return &types.SearchResponse{
		Provider: p.name,
		Results:  []types.SearchResult{{Title: "stub", URL: "https://example.com"}},
	}, nil
}

func (p *stubProvider) EstimateCost(query *types.SearchQuery) float64 {
	return p.cost
}

func (p *stubProvider) GetCapabilities() types.ProviderCapabilities {
	return types.ProviderCapabilities{ContentTypes: types.AllContentTypes}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testRegistry(costs map[string]float64) providers.Registry {
	registry := providers.Registry{}
	for _, name := range []string{
		scoring.ProviderNewsAPI, scoring.ProviderTavily, scoring.ProviderExa,
		scoring.ProviderSerper, scoring.ProviderFirecrawl, scoring.ProviderBrave,
	} {
		registry[name] = &stubProvider{name: name, cost: costs[name]}
	}
	return registry
}

func testController() *admission.Controller {
	return admission.NewController(admission.ControllerConfig{
		Breaker:          admission.CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute},
		GlobalRateLimit:  admission.RateLimitConfig{RequestsPerMinute: 1000, Cooldown: time.Millisecond},
		DefaultRateLimit: admission.RateLimitConfig{RequestsPerMinute: 1000, Cooldown: time.Millisecond},
	}, testLogger())
}

func testStrategies(registry providers.Registry, controller *admission.Controller) (execution.Strategy, execution.Strategy) {
	timeouts := execution.DefaultTimeoutConfig()
	logger := testLogger()
	parallel := execution.NewParallelStrategy(registry, controller, nil, timeouts, logger)
	policy := execution.CascadePolicy{SecondaryDelay: time.Millisecond, MinSuccessfulProviders: 1}
	cascade := execution.NewCascadeStrategy(registry, controller, nil, timeouts, policy, logger)
	return parallel, cascade
}

func newTestHybridRouter(registry providers.Registry, scorer scoring.ProviderScorer, llmEnabled bool) *HybridRouter {
	logger := testLogger()
	controller := testController()
	parallel, cascade := testStrategies(registry, controller)
	pattern := NewPatternRouter(logger)
	scored := NewScoredRouter(scorer, pattern, llmEnabled, logger)
	metrics := NewRouterMetrics(prometheus.NewRegistry())
	return NewHybridRouter(registry, scored, parallel, cascade, metrics, logger)
}

func newTestUnifiedRouter(registry providers.Registry) (*UnifiedRouter, *admission.Controller) {
	logger := testLogger()
	controller := testController()
	parallel, cascade := testStrategies(registry, controller)
	calculator := scoring.NewCalculator(scoring.NewMetricsStore(), logger)
	optimizer := scoring.NewCostOptimizer(logger)
	metrics := NewRouterMetrics(prometheus.NewRegistry())
	return NewUnifiedRouter(registry, controller, calculator, optimizer, parallel, cascade, metrics, logger), controller
}

func TestKeywordRouter_BreakingNewsPutsNewsProviderFirst(t *testing.T) {
	router := NewKeywordRouter(testLogger())

	selected, _ := router.Select("breaking news today")

	if len(selected) < 3 {
		t.Fatalf("Expected at least 3 providers, got %d", len(selected))
	}
	if selected[0] != scoring.ProviderNewsAPI {
		t.Errorf("Expected %s first for breaking news, got %s", scoring.ProviderNewsAPI, selected[0])
	}
}

func TestKeywordRouter_URLShortCircuitsToExtraction(t *testing.T) {
	router := NewKeywordRouter(testLogger())

	selected, _ := router.Select("summarize https://example.com/article")

	if selected[0] != scoring.ProviderFirecrawl {
		t.Errorf("Expected %s first for URL query, got %s", scoring.ProviderFirecrawl, selected[0])
	}
}

func TestKeywordRouter_NoMatchReturnsDefaults(t *testing.T) {
	router := NewKeywordRouter(testLogger())

	selected, _ := router.Select("xylophone maintenance")

	if len(selected) != len(defaultProviders) {
		t.Fatalf("Expected default set of %d, got %d", len(defaultProviders), len(selected))
	}
	for i, name := range defaultProviders {
		if selected[i] != name {
			t.Errorf("Expected default provider %s at %d, got %s", name, i, selected[i])
		}
	}
}

func TestKeywordRouter_CapsAtFive(t *testing.T) {
	router := NewKeywordRouter(testLogger())

	selected, _ := router.Select("search find news research extract web latest")

	if len(selected) > keywordMaxProviders {
		t.Errorf("Expected at most %d providers, got %d", keywordMaxProviders, len(selected))
	}
}

func TestPatternRouter_NewsContentFavorsNewsAPI(t *testing.T) {
	router := NewPatternRouter(testLogger())
	features := types.QueryFeatures{ContentType: types.ContentTypeNews}

	selected, _ := router.Select("latest developments in the election", features)

	if len(selected) == 0 {
		t.Fatal("Expected a non-empty selection")
	}
	if selected[0] != scoring.ProviderNewsAPI {
		t.Errorf("Expected %s first for news content, got %s", scoring.ProviderNewsAPI, selected[0])
	}
}

func TestPatternRouter_DetectsContentTypeWhenMissing(t *testing.T) {
	router := NewPatternRouter(testLogger())

	selected, _ := router.Select("research paper on protein folding", types.QueryFeatures{})

	if selected[0] != scoring.ProviderExa {
		t.Errorf("Expected %s first for academic query, got %s", scoring.ProviderExa, selected[0])
	}
}

func TestPatternRouter_CapsAtFive(t *testing.T) {
	router := NewPatternRouter(testLogger())
	features := types.QueryFeatures{ContentType: types.ContentTypeGeneral, HasQuestion: true}

	selected, _ := router.Select("what is the best way to learn go", features)

	if len(selected) > patternMaxProviders {
		t.Errorf("Expected at most %d providers, got %d", patternMaxProviders, len(selected))
	}
}

// fixedScorer returns a canned score table.
type fixedScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (s *fixedScorer) ScoreProviders(_ context.Context, _ types.QueryFeatures, _ []string) (map[string]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func TestScoredRouter_KeepsAboveThreshold(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{
		"exa": 0.9, "tavily": 0.6, "serper": 0.4, "brave": 0.2,
	}}
	router := NewScoredRouter(scorer, NewPatternRouter(testLogger()), true, testLogger())

	selected, usedFallback, _ := router.Select(context.Background(), "query", types.QueryFeatures{}, []string{"exa", "tavily", "serper", "brave"})

	if usedFallback {
		t.Fatal("Should not have used fallback")
	}
	if len(selected) != 2 || selected[0] != "exa" || selected[1] != "tavily" {
		t.Errorf("Expected [exa tavily], got %v", selected)
	}
}

func TestScoredRouter_TopThreeWhenNoneClearThreshold(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{
		"exa": 0.4, "tavily": 0.3, "serper": 0.2, "brave": 0.1,
	}}
	router := NewScoredRouter(scorer, NewPatternRouter(testLogger()), true, testLogger())

	selected, _, _ := router.Select(context.Background(), "query", types.QueryFeatures{}, []string{"exa", "tavily", "serper", "brave"})

	if len(selected) != 3 {
		t.Fatalf("Expected top 3, got %v", selected)
	}
	if selected[0] != "exa" {
		t.Errorf("Expected exa first, got %s", selected[0])
	}
}

func TestScoredRouter_FallsBackOnScorerError(t *testing.T) {
	scorer := &fixedScorer{err: errors.New("scorer unavailable")}
	router := NewScoredRouter(scorer, NewPatternRouter(testLogger()), true, testLogger())

	selected, usedFallback, _ := router.Select(context.Background(), "analyze market trends", types.QueryFeatures{}, []string{"exa"})

	if !usedFallback {
		t.Fatal("Expected pattern fallback on scorer error")
	}
	if len(selected) == 0 {
		t.Error("Fallback must still select providers")
	}
}

func TestScoredRouter_DisabledUsesFallbackWithoutScoring(t *testing.T) {
	scorer := &fixedScorer{scores: map[string]float64{"exa": 0.9}}
	router := NewScoredRouter(scorer, NewPatternRouter(testLogger()), false, testLogger())

	_, usedFallback, _ := router.Select(context.Background(), "query", types.QueryFeatures{}, []string{"exa"})

	if !usedFallback {
		t.Fatal("Disabled router must use fallback")
	}
	if scorer.calls != 0 {
		t.Errorf("Scorer must not be called when disabled, got %d calls", scorer.calls)
	}
}

func TestHybridRouter_BreakingNewsRoutesTier1Parallel(t *testing.T) {
	registry := testRegistry(nil)
	router := newTestHybridRouter(registry, nil, false)

	query := &types.SearchQuery{ID: "q-news", Query: "breaking news today"}
	decision, features := router.Decide(context.Background(), query)

	if decision.Mode != ModeKeyword {
		t.Errorf("Expected mode %s, got %s", ModeKeyword, decision.Mode)
	}
	if len(decision.Providers) == 0 || decision.Providers[0] != scoring.ProviderNewsAPI {
		t.Errorf("Expected %s first, got %v", scoring.ProviderNewsAPI, decision.Providers)
	}
	if decision.Strategy != execution.StrategyParallel {
		t.Errorf("Expected parallel strategy, got %s", decision.Strategy)
	}
	if decision.Confidence != confidenceKeyword {
		t.Errorf("Expected confidence %v, got %v", confidenceKeyword, decision.Confidence)
	}
	if features.TimeSensitivity <= 0.7 {
		t.Errorf("Expected high time sensitivity, got %v", features.TimeSensitivity)
	}
}

func TestHybridRouter_ExplicitProvidersSkipTiers(t *testing.T) {
	registry := testRegistry(nil)
	router := newTestHybridRouter(registry, nil, false)

	query := &types.SearchQuery{ID: "q-explicit", Query: "anything", Providers: []string{"exa", "tavily"}}
	decision, _ := router.Decide(context.Background(), query)

	if decision.Mode != ModeExplicit {
		t.Errorf("Expected mode %s, got %s", ModeExplicit, decision.Mode)
	}
	if len(decision.Providers) != 2 || decision.Providers[0] != "exa" {
		t.Errorf("Expected [exa tavily], got %v", decision.Providers)
	}
	if decision.Confidence != confidenceExplicit {
		t.Errorf("Expected confidence 1.0, got %v", decision.Confidence)
	}
}

func TestHybridRouter_UnregisteredProvidersDropped(t *testing.T) {
	registry := providers.Registry{"tavily": &stubProvider{name: "tavily"}}
	router := newTestHybridRouter(registry, nil, false)

	query := &types.SearchQuery{ID: "q-x", Query: "anything", Providers: []string{"nope", "tavily"}}
	decision, _ := router.Decide(context.Background(), query)

	if len(decision.Providers) != 1 || decision.Providers[0] != "tavily" {
		t.Errorf("Expected only tavily, got %v", decision.Providers)
	}
}

func TestHybridRouter_EmptyRegistryConfidenceZero(t *testing.T) {
	router := newTestHybridRouter(providers.Registry{}, nil, false)

	decision, _ := router.Decide(context.Background(), &types.SearchQuery{ID: "q-e", Query: "breaking news"})

	if len(decision.Providers) != 0 {
		t.Fatalf("Expected no providers, got %v", decision.Providers)
	}
	if decision.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %v", decision.Confidence)
	}
}

func TestHybridRouter_CascadeHintPicksCascade(t *testing.T) {
	registry := testRegistry(nil)
	router := newTestHybridRouter(registry, nil, false)

	query := &types.SearchQuery{ID: "q-c", Query: "breaking news today", RoutingHints: "prefer cascade"}
	decision, _ := router.Decide(context.Background(), query)

	if decision.Strategy != execution.StrategyCascade {
		t.Errorf("Expected cascade strategy, got %s", decision.Strategy)
	}
}

func TestHybridRouter_RouteExecutesSelection(t *testing.T) {
	registry := testRegistry(nil)
	router := newTestHybridRouter(registry, nil, false)

	query := &types.SearchQuery{ID: "q-run", Query: "breaking news today"}
	decision, outcome := router.Route(context.Background(), query)

	if len(outcome.Results) != len(decision.Providers) {
		t.Fatalf("Expected %d results, got %d", len(decision.Providers), len(outcome.Results))
	}
	if outcome.Successes() != len(decision.Providers) {
		t.Errorf("Expected all providers to succeed, got %d", outcome.Successes())
	}
}

func TestHybridRouter_MetricsAccumulate(t *testing.T) {
	registry := testRegistry(nil)
	metrics := NewRouterMetrics(prometheus.NewRegistry())
	logger := testLogger()
	controller := testController()
	parallel, cascade := testStrategies(registry, controller)
	scored := NewScoredRouter(nil, NewPatternRouter(logger), false, logger)
	router := NewHybridRouter(registry, scored, parallel, cascade, metrics, logger)

	router.Decide(context.Background(), &types.SearchQuery{ID: "1", Query: "breaking news today"})
	router.Decide(context.Background(), &types.SearchQuery{ID: "2", Query: "latest headlines now"})

	stats := metrics.Snapshot()
	if stats.TotalQueries != 2 {
		t.Fatalf("Expected 2 queries, got %d", stats.TotalQueries)
	}
	if stats.QueriesByMode[ModeKeyword] != 2 {
		t.Errorf("Expected 2 keyword decisions, got %d", stats.QueriesByMode[ModeKeyword])
	}
}

func TestUnifiedRouter_BudgetSelectionMatchesOptimizer(t *testing.T) {
	costs := map[string]float64{
		"newsapi": 0.02, "tavily": 0.005, "exa": 0.03,
		"serper": 0.001, "firecrawl": 0.04, "brave": 0.002,
	}
	registry := testRegistry(costs)
	router, _ := newTestUnifiedRouter(registry)

	budget := 0.01
	query := &types.SearchQuery{ID: "q-b", Query: "research papers on quantum computing", Budget: &budget}
	decision, _ := router.Decide(context.Background(), query)

	if decision.Metadata["budget"] != budget {
		t.Errorf("Expected metadata budget %v, got %v", budget, decision.Metadata["budget"])
	}

	// the selection must be exactly what the optimizer picks for the same
	// score table and costs
	logger := testLogger()
	calculator := scoring.NewCalculator(scoring.NewMetricsStore(), logger)
	features := router.analyzer.Analyze(query.Query)
	scores := calculator.ScoreAll([]string{"brave", "exa", "firecrawl", "newsapi", "serper", "tavily"}, features)
	expected := scoring.NewCostOptimizer(logger).OptimizeSelection(scores, costs, budget)

	if len(decision.Providers) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, decision.Providers)
	}
	for i := range expected {
		if decision.Providers[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, decision.Providers)
			break
		}
	}
}

func TestUnifiedRouter_ThresholdSubsetWithoutBudget(t *testing.T) {
	registry := testRegistry(nil)
	router, _ := newTestUnifiedRouter(registry)

	query := &types.SearchQuery{ID: "q-t", Query: "general knowledge question"}
	decision, _ := router.Decide(context.Background(), query)

	if len(decision.Providers) == 0 {
		t.Fatal("Expected a non-empty selection")
	}
	if len(decision.Providers) > thresholdMaxProviders {
		t.Errorf("Expected at most %d providers, got %d", thresholdMaxProviders, len(decision.Providers))
	}
	if _, ok := decision.Metadata["budget"]; ok {
		t.Error("Budget metadata must not be set without a budget")
	}
}

func TestUnifiedRouter_OpenBreakerExcludedFromScoring(t *testing.T) {
	registry := testRegistry(nil)
	router, controller := newTestUnifiedRouter(registry)
	controller.Breaker("newsapi").ForceOpen()

	query := &types.SearchQuery{ID: "q-o", Query: "breaking news today"}
	decision, _ := router.Decide(context.Background(), query)

	for _, name := range decision.Providers {
		if name == "newsapi" {
			t.Error("Provider with open breaker must not be selected")
		}
	}
	for _, s := range decision.Scores {
		if s.Provider == "newsapi" {
			t.Error("Provider with open breaker must not be scored")
		}
	}
}

func TestUnifiedRouter_AllBreakersOpenConfidenceZero(t *testing.T) {
	registry := testRegistry(nil)
	router, controller := newTestUnifiedRouter(registry)
	for name := range registry {
		controller.Breaker(name).ForceOpen()
	}

	decision, _ := router.Decide(context.Background(), &types.SearchQuery{ID: "q-z", Query: "anything"})

	if len(decision.Providers) != 0 {
		t.Fatalf("Expected no providers, got %v", decision.Providers)
	}
	if decision.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %v", decision.Confidence)
	}
}

func TestUnifiedRouter_WebContentPicksCascade(t *testing.T) {
	registry := testRegistry(nil)
	router, _ := newTestUnifiedRouter(registry)

	query := &types.SearchQuery{ID: "q-w", Query: "extract content from example.com homepage"}
	decision, features := router.Decide(context.Background(), query)

	if features.ContentType != types.ContentTypeWebContent {
		t.Fatalf("Expected web_content features, got %s", features.ContentType)
	}
	if decision.Strategy != execution.StrategyCascade {
		t.Errorf("Expected cascade for web_content, got %s", decision.Strategy)
	}
}

func TestUnifiedRouter_RouteFeedsBreakerFromOutcome(t *testing.T) {
	registry := providers.Registry{
		"flaky": &stubProvider{name: "flaky", fail: true},
	}
	router, controller := newTestUnifiedRouter(registry)

	query := &types.SearchQuery{ID: "q-f", Query: "anything"}
	for i := 0; i < 3; i++ {
		router.Route(context.Background(), query)
	}

	if !controller.Breaker("flaky").IsOpen() {
		t.Error("Repeated failures should trip the breaker via execution")
	}
}
