package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tributary-ai/search-router/internal/types"
)

// ProviderScorer is the tier-3 scoring contract: a 0.0–1.0 score per named
// provider for one feature vector. Implementations may call a language model;
// the heuristic scorer is the deterministic fallback.
type ProviderScorer interface {
	ScoreProviders(ctx context.Context, features types.QueryFeatures, providers []string) (map[string]float64, error)
}

// HeuristicScorer scores from the fixed affinity tables plus feature
// adjustments. Deterministic, no I/O.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the fallback scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// ScoreProviders never fails; it exists to satisfy ProviderScorer.
func (s *HeuristicScorer) ScoreProviders(_ context.Context, features types.QueryFeatures, providers []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(providers))
	for _, name := range providers {
		score := Affinity(name, features.ContentType)
		score += 0.3 * Specialization(name, features.ContentType)

		if features.TimeSensitivity > 0.5 && (name == ProviderNewsAPI || name == ProviderTavily) {
			score += 0.1
		}
		if features.FactualNature > 0.7 && name == ProviderExa {
			score += 0.1
		}

		if score > 1.0 {
			score = 1.0
		}
		scores[name] = score
	}
	return scores, nil
}

// FeatureHash produces a stable cache key from a feature vector and provider
// list. Scores depend on nothing else, so two identical hashes may share a
// cached result.
func FeatureHash(features types.QueryFeatures, providers []string) uint64 {
	sorted := make([]string, len(providers))
	copy(sorted, providers)
	sort.Strings(sorted)

	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%t|%s|%.3f|%.3f|%.3f|%s",
		features.Length,
		features.WordCount,
		features.HasQuestion,
		features.ContentType,
		features.TimeSensitivity,
		features.Complexity,
		features.FactualNature,
		strings.Join(sorted, ","),
	)
	return h.Sum64()
}

type cacheEntry struct {
	scores  map[string]float64
	expires time.Time
}

// ScoreCache memoizes scorer results by feature hash with a TTL. LLM-assisted
// scoring is slow and paid; identical feature vectors within the TTL reuse
// the previous answer.
type ScoreCache struct {
	mutex   sync.Mutex
	ttl     time.Duration
	entries map[uint64]cacheEntry
}

// NewScoreCache creates a cache with the given TTL.
func NewScoreCache(ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScoreCache{ttl: ttl, entries: make(map[uint64]cacheEntry)}
}

// Get returns the cached scores for the key, if present and fresh.
func (c *ScoreCache) Get(key uint64) (map[string]float64, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.scores, true
}

// Put stores scores under the key.
func (c *ScoreCache) Put(key uint64, scores map[string]float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry{scores: scores, expires: time.Now().Add(c.ttl)}
}

// CachedScorer wraps a ProviderScorer with a ScoreCache.
type CachedScorer struct {
	scorer ProviderScorer
	cache  *ScoreCache
}

// NewCachedScorer wraps the scorer.
func NewCachedScorer(scorer ProviderScorer, cache *ScoreCache) *CachedScorer {
	return &CachedScorer{scorer: scorer, cache: cache}
}

// ScoreProviders consults the cache before delegating.
func (s *CachedScorer) ScoreProviders(ctx context.Context, features types.QueryFeatures, providers []string) (map[string]float64, error) {
	key := FeatureHash(features, providers)
	if scores, ok := s.cache.Get(key); ok {
		return scores, nil
	}

	scores, err := s.scorer.ScoreProviders(ctx, features, providers)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, scores)
	return scores, nil
}
