package routing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/classify"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/types"
)

// HybridRouter is the three-tier orchestrator: classify the query, pick the
// cheapest tier that fits its complexity, select providers, then execute.
// Simple queries never pay for pattern analysis or LLM scoring.
type HybridRouter struct {
	analyzer *classify.QueryAnalyzer
	keyword  *KeywordRouter
	pattern  *PatternRouter
	scored   *ScoredRouter
	registry providers.Registry
	parallel execution.Strategy
	cascade  execution.Strategy
	metrics  *RouterMetrics
	logger   *logrus.Logger
}

// NewHybridRouter wires the three tiers to the shared execution strategies.
func NewHybridRouter(
	registry providers.Registry,
	scored *ScoredRouter,
	parallel execution.Strategy,
	cascade execution.Strategy,
	metrics *RouterMetrics,
	logger *logrus.Logger,
) *HybridRouter {
	return &HybridRouter{
		analyzer: classify.NewQueryAnalyzer(),
		keyword:  NewKeywordRouter(logger),
		pattern:  NewPatternRouter(logger),
		scored:   scored,
		registry: registry,
		parallel: parallel,
		cascade:  cascade,
		metrics:  metrics,
		logger:   logger,
	}
}

// Decide selects providers for the query without executing anything. The
// returned features feed the execution strategies' timeout calculation.
func (r *HybridRouter) Decide(ctx context.Context, query *types.SearchQuery) (*RoutingDecision, types.QueryFeatures) {
	start := time.Now()
	features := r.analyzer.Analyze(query.Query)

	var (
		selected    []string
		mode        string
		confidence  float64
		explanation string
	)

	switch {
	case len(query.Providers) > 0:
		selected = append([]string(nil), query.Providers...)
		mode = ModeExplicit
		confidence = confidenceExplicit
		explanation = "providers named explicitly on the query"

	default:
		switch classify.LevelFor(features.Complexity) {
		case types.ComplexitySimple:
			selected, explanation = r.keyword.Select(query.Query)
			mode = ModeKeyword
			confidence = confidenceKeyword
		case types.ComplexityMedium:
			selected, explanation = r.pattern.Select(query.Query, features)
			mode = ModePattern
			confidence = confidencePattern
		default:
			var usedFallback bool
			selected, usedFallback, explanation = r.scored.Select(ctx, query.Query, features, r.registry.Names())
			if usedFallback {
				mode = ModePattern
				confidence = confidencePattern
			} else {
				mode = ModeScored
				confidence = confidenceScored
			}
		}
	}

	selected = r.filterRegistered(selected)
	if len(selected) == 0 {
		confidence = 0
		explanation = "no registered provider was eligible"
	}

	strategy := execution.StrategyParallel
	if query.WantsCascade() {
		strategy = execution.StrategyCascade
	}

	decision := &RoutingDecision{
		QueryID:     query.ID,
		Providers:   selected,
		Mode:        mode,
		Strategy:    strategy,
		Confidence:  confidence,
		Explanation: explanation,
		Metadata: map[string]interface{}{
			"complexity":   features.Complexity,
			"content_type": features.ContentType,
		},
	}

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveDecision(mode, elapsed)
	}
	r.logger.WithFields(logrus.Fields{
		"query_id":   query.ID,
		"mode":       mode,
		"providers":  selected,
		"strategy":   strategy,
		"confidence": confidence,
		"elapsed":    elapsed,
	}).Debug("Routing decision made")

	return decision, features
}

// Route decides and executes in one call, returning per-provider results.
// An empty decision is not an error: the outcome simply holds no results.
func (r *HybridRouter) Route(ctx context.Context, query *types.SearchQuery) (*RoutingDecision, *execution.Outcome) {
	decision, features := r.Decide(ctx, query)
	if len(decision.Providers) == 0 {
		return decision, execution.NewOutcome()
	}

	strategy := r.parallel
	if decision.Strategy == execution.StrategyCascade {
		strategy = r.cascade
	}
	outcome := strategy.Execute(ctx, decision.Providers, query, features)
	if r.metrics != nil {
		r.metrics.ObserveDenials(outcome.Denials)
	}
	return decision, outcome
}

// filterRegistered drops selections the registry does not know about.
func (r *HybridRouter) filterRegistered(selected []string) []string {
	var known []string
	for _, name := range selected {
		if _, ok := r.registry[name]; ok {
			known = append(known, name)
		} else {
			r.logger.WithField("provider", name).Debug("Dropping unregistered provider from selection")
		}
	}
	return known
}
