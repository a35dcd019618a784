package routing

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/classify"
	"github.com/tributary-ai/search-router/internal/execution"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

const (
	// thresholdMargin keeps any provider within 20% of the top score
	thresholdMargin = 0.8

	// thresholdMinConfidence excludes low-confidence runners-up
	thresholdMinConfidence = 0.6

	// thresholdMaxProviders caps the score-threshold subset
	thresholdMaxProviders = 3

	// cascadeComplexity switches complex queries to sequential fallback
	cascadeComplexity = 0.7
)

// UnifiedRouter always scores every eligible provider with the weighted
// calculator, then selects either by budget (cost optimizer) or by score
// threshold. Providers with an open circuit breaker are excluded before
// scoring.
type UnifiedRouter struct {
	analyzer   *classify.QueryAnalyzer
	registry   providers.Registry
	controller *admission.Controller
	calculator *scoring.Calculator
	optimizer  *scoring.CostOptimizer
	parallel   execution.Strategy
	cascade    execution.Strategy
	metrics    *RouterMetrics
	logger     *logrus.Logger
}

// NewUnifiedRouter wires the score-everything orchestrator.
func NewUnifiedRouter(
	registry providers.Registry,
	controller *admission.Controller,
	calculator *scoring.Calculator,
	optimizer *scoring.CostOptimizer,
	parallel execution.Strategy,
	cascade execution.Strategy,
	metrics *RouterMetrics,
	logger *logrus.Logger,
) *UnifiedRouter {
	return &UnifiedRouter{
		analyzer:   classify.NewQueryAnalyzer(),
		registry:   registry,
		controller: controller,
		calculator: calculator,
		optimizer:  optimizer,
		parallel:   parallel,
		cascade:    cascade,
		metrics:    metrics,
		logger:     logger,
	}
}

// Decide scores eligible providers and selects a subset, without executing.
func (r *UnifiedRouter) Decide(ctx context.Context, query *types.SearchQuery) (*RoutingDecision, types.QueryFeatures) {
	start := time.Now()
	features := r.analyzer.Analyze(query.Query)

	decision := &RoutingDecision{
		QueryID: query.ID,
		Mode:    ModeUnified,
		Metadata: map[string]interface{}{
			"complexity":   features.Complexity,
			"content_type": features.ContentType,
		},
	}

	eligible := r.eligibleProviders()
	if len(eligible) == 0 {
		decision.Explanation = "no provider eligible: registry empty or all circuit breakers open"
		decision.Strategy = execution.StrategyParallel
		r.observe(decision, time.Since(start))
		return decision, features
	}

	scores := r.calculator.ScoreAll(eligible, features)
	decision.Scores = scores

	if query.Budget != nil {
		costs := r.estimateCosts(eligible, query)
		decision.Providers = r.optimizer.OptimizeSelection(scores, costs, *query.Budget)
		decision.Metadata["budget"] = *query.Budget
		decision.Explanation = "budget-constrained selection via cost optimizer"
	} else {
		decision.Providers = thresholdSubset(scores)
		decision.Explanation = "score-threshold selection"
	}

	decision.Confidence = selectionConfidence(scores, decision.Providers)
	decision.Strategy = r.pickStrategy(query, features, decision.Providers)

	r.observe(decision, time.Since(start))
	return decision, features
}

// Route decides and executes. Execution outcomes feed each provider's
// circuit breaker inside the strategy.
func (r *UnifiedRouter) Route(ctx context.Context, query *types.SearchQuery) (*RoutingDecision, *execution.Outcome) {
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

// eligibleProviders returns registered providers whose breaker is not open,
// sorted for deterministic scoring order.
func (r *UnifiedRouter) eligibleProviders() []string {
	var eligible []string
	for _, name := range r.registry.Names() {
		if r.controller.Breaker(name).IsOpen() {
			r.logger.WithField("provider", name).Debug("Excluding provider with open circuit breaker")
			continue
		}
		eligible = append(eligible, name)
	}
	sort.Strings(eligible)
	return eligible
}

func (r *UnifiedRouter) estimateCosts(eligible []string, query *types.SearchQuery) map[string]float64 {
	costs := make(map[string]float64, len(eligible))
	for _, name := range eligible {
		costs[name] = r.registry[name].EstimateCost(query)
	}
	return costs
}

// pickStrategy chooses cascade when fallback matters more than latency.
func (r *UnifiedRouter) pickStrategy(query *types.SearchQuery, features types.QueryFeatures, selected []string) string {
	switch {
	case len(selected) == 1,
		features.Complexity > cascadeComplexity,
		query.WantsCascade(),
		features.ContentType == types.ContentTypeWebContent:
		return execution.StrategyCascade
	default:
		return execution.StrategyParallel
	}
}

func (r *UnifiedRouter) observe(decision *RoutingDecision, elapsed time.Duration) {
	if len(decision.Providers) == 0 {
		decision.Confidence = 0
	}
	if r.metrics != nil {
		r.metrics.ObserveDecision(decision.Mode, elapsed)
	}
	r.logger.WithFields(logrus.Fields{
		"query_id":   decision.QueryID,
		"providers":  decision.Providers,
		"strategy":   decision.Strategy,
		"confidence": decision.Confidence,
		"elapsed":    elapsed,
	}).Debug("Unified routing decision made")
}

// thresholdSubset keeps the top provider plus any provider scoring within
// 20% of it with confidence at least 0.6, capped at 3. Scores are already
// sorted descending.
func thresholdSubset(scores []scoring.ProviderScore) []string {
	if len(scores) == 0 {
		return nil
	}
	top := scores[0]
	selected := []string{top.Provider}
	floor := top.FinalScore * thresholdMargin

	for _, s := range scores[1:] {
		if len(selected) >= thresholdMaxProviders {
			break
		}
		if s.FinalScore >= floor && s.Confidence >= thresholdMinConfidence {
			selected = append(selected, s.Provider)
		}
	}
	return selected
}

// selectionConfidence is the mean confidence of the selected providers.
func selectionConfidence(scores []scoring.ProviderScore, selected []string) float64 {
	if len(selected) == 0 {
		return 0
	}
	byName := make(map[string]scoring.ProviderScore, len(scores))
	for _, s := range scores {
		byName[s.Provider] = s
	}
	total := 0.0
	for _, name := range selected {
		total += byName[name].Confidence
	}
	return total / float64(len(selected))
}
