package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributary-ai/search-router/internal/types"
)

func TestHeuristicScorer_Deterministic(t *testing.T) {
	s := NewHeuristicScorer()
	features := types.QueryFeatures{ContentType: types.ContentTypeAcademic, FactualNature: 0.9}
	providers := []string{ProviderExa, ProviderBrave}

	first, err := s.ScoreProviders(context.Background(), features, providers)
	require.NoError(t, err)

	again, err := s.ScoreProviders(context.Background(), features, providers)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Greater(t, first[ProviderExa], first[ProviderBrave])
}

func TestFeatureHash_StableAcrossProviderOrder(t *testing.T) {
	features := types.QueryFeatures{ContentType: types.ContentTypeNews, WordCount: 3}

	a := FeatureHash(features, []string{"tavily", "exa"})
	b := FeatureHash(features, []string{"exa", "tavily"})
	assert.Equal(t, a, b)

	different := types.QueryFeatures{ContentType: types.ContentTypeNews, WordCount: 4}
	assert.NotEqual(t, a, FeatureHash(different, []string{"tavily", "exa"}))
}

type countingScorer struct {
	calls  int
	fail   bool
	result map[string]float64
}

func (c *countingScorer) ScoreProviders(_ context.Context, _ types.QueryFeatures, _ []string) (map[string]float64, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("scorer unavailable")
	}
	return c.result, nil
}

func TestCachedScorer_HitsCacheWithinTTL(t *testing.T) {
	inner := &countingScorer{result: map[string]float64{"exa": 0.8}}
	cached := NewCachedScorer(inner, NewScoreCache(time.Minute))

	features := types.QueryFeatures{ContentType: types.ContentTypeTechnical}
	providers := []string{"exa"}

	first, err := cached.ScoreProviders(context.Background(), features, providers)
	require.NoError(t, err)

	second, err := cached.ScoreProviders(context.Background(), features, providers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedScorer_ExpiresAfterTTL(t *testing.T) {
	inner := &countingScorer{result: map[string]float64{"exa": 0.8}}
	cached := NewCachedScorer(inner, NewScoreCache(10*time.Millisecond))

	features := types.QueryFeatures{ContentType: types.ContentTypeTechnical}

	_, err := cached.ScoreProviders(context.Background(), features, []string{"exa"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = cached.ScoreProviders(context.Background(), features, []string{"exa"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedScorer_ErrorsNotCached(t *testing.T) {
	inner := &countingScorer{fail: true}
	cached := NewCachedScorer(inner, NewScoreCache(time.Minute))

	features := types.QueryFeatures{ContentType: types.ContentTypeGeneral}

	_, err := cached.ScoreProviders(context.Background(), features, []string{"exa"})
	require.Error(t, err)

	_, err = cached.ScoreProviders(context.Background(), features, []string{"exa"})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestParseScores(t *testing.T) {
	providers := []string{"exa", "tavily"}

	scores, err := parseScores("Here you go:\n```json\n{\"exa\": 0.9, \"tavily\": 0.4}\n```", providers)
	require.NoError(t, err)
	assert.Equal(t, 0.9, scores["exa"])
	assert.Equal(t, 0.4, scores["tavily"])

	_, err = parseScores("no json here", providers)
	assert.Error(t, err)

	_, err = parseScores(`{"exa": 0.9}`, providers)
	assert.Error(t, err, "missing provider must be rejected")

	clamped, err := parseScores(`{"exa": 1.7, "tavily": -0.2}`, providers)
	require.NoError(t, err)
	assert.Equal(t, 1.0, clamped["exa"])
	assert.Equal(t, 0.0, clamped["tavily"])
}
