package routing

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

const (
	scoredScoreThreshold = 0.5
	scoredTopFallback    = 3
	scoredMaxProviders   = 5
)

// ScoredRouter is the tier-3 selector: an external scorer (LLM-backed or
// heuristic) ranks providers per feature set, with results cached by feature
// hash. Any scorer error falls back to the pattern tier so complex queries
// are never left unrouted.
type ScoredRouter struct {
	scorer   scoring.ProviderScorer
	fallback *PatternRouter
	enabled  bool
	logger   *logrus.Logger
}

// NewScoredRouter creates the tier-3 router. A nil scorer or enabled=false
// makes every selection use the fallback.
func NewScoredRouter(scorer scoring.ProviderScorer, fallback *PatternRouter, enabled bool, logger *logrus.Logger) *ScoredRouter {
	return &ScoredRouter{
		scorer:   scorer,
		fallback: fallback,
		enabled:  enabled,
		logger:   logger,
	}
}

// Select scores the candidate providers and keeps those above threshold, or
// the top 3 when none clear it. The second return reports whether the
// pattern fallback was used instead.
func (r *ScoredRouter) Select(ctx context.Context, query string, features types.QueryFeatures, candidates []string) ([]string, bool, string) {
	if !r.enabled || r.scorer == nil || len(candidates) == 0 {
		selected, explanation := r.fallback.Select(query, features)
		return selected, true, explanation
	}

	scores, err := r.scorer.ScoreProviders(ctx, features, candidates)
	if err != nil {
		r.logger.WithError(err).Warn("Provider scorer failed, falling back to pattern routing")
		selected, explanation := r.fallback.Select(query, features)
		return selected, true, explanation
	}

	type scored struct {
		provider string
		score    float64
	}
	ranked := make([]scored, 0, len(scores))
	for provider, score := range scores {
		ranked = append(ranked, scored{provider: provider, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].provider < ranked[j].provider
	})

	var selected []string
	for _, c := range ranked {
		if c.score > scoredScoreThreshold && len(selected) < scoredMaxProviders {
			selected = append(selected, c.provider)
		}
	}
	if len(selected) == 0 {
		for i := 0; i < len(ranked) && i < scoredTopFallback; i++ {
			selected = append(selected, ranked[i].provider)
		}
	}
	return selected, false, fmt.Sprintf("scorer ranked %d providers, selected %d", len(ranked), len(selected))
}
