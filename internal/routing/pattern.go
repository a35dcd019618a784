package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/classify"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

// Tier-2 feature bonuses. Each phrasing pattern nudges the providers that
// handle it well.
var comparisonMarkers = []string{" vs ", " versus ", "compare", "difference between"}
var tutorialMarkers = []string{"how to", "tutorial", "guide", "step by step"}
var listMarkers = []string{"top ", "best ", "list of"}

const (
	patternScoreFloor   = 0.3
	patternMaxProviders = 5
	longQueryWords      = 12
	shortQueryWords     = 4
)

// patternProviders is the candidate set this tier scores.
var patternProviders = []string{
	scoring.ProviderNewsAPI,
	scoring.ProviderTavily,
	scoring.ProviderExa,
	scoring.ProviderSerper,
	scoring.ProviderFirecrawl,
	scoring.ProviderBrave,
}

// PatternRouter is the tier-2 selector: content-type affinity plus phrasing
// bonuses. More discriminating than keywords, still fully deterministic.
type PatternRouter struct {
	detector *classify.ContentTypeDetector
	logger   *logrus.Logger
}

// NewPatternRouter creates the tier-2 router.
func NewPatternRouter(logger *logrus.Logger) *PatternRouter {
	return &PatternRouter{
		detector: classify.NewContentTypeDetector(),
		logger:   logger,
	}
}

// Select scores every provider against the detected content type and the
// query's phrasing, keeping providers above a low floor. Falls back to the
// default triple when nothing clears it.
func (r *PatternRouter) Select(query string, features types.QueryFeatures) ([]string, string) {
	contentType := features.ContentType
	if contentType == "" {
		contentType = r.detector.Detect(query)
	}
	lowered := strings.ToLower(query)

	type scored struct {
		provider string
		score    float64
	}
	var candidates []scored
	for _, provider := range patternProviders {
		score := scoring.Affinity(provider, contentType) + phraseBonus(provider, query, lowered, features)
		if score < patternScoreFloor {
			continue
		}
		candidates = append(candidates, scored{provider: provider, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].provider < candidates[j].provider
	})

	var selected []string
	for _, c := range candidates {
		if len(selected) >= patternMaxProviders {
			break
		}
		selected = append(selected, c.provider)
	}

	if len(selected) == 0 {
		return append([]string(nil), defaultProviders...), "no provider cleared the pattern floor, default provider set"
	}
	return selected, fmt.Sprintf("pattern match on content type %q selected %d providers", contentType, len(selected))
}

// phraseBonus rewards providers suited to the query's form.
func phraseBonus(provider, query, lowered string, features types.QueryFeatures) float64 {
	bonus := 0.0

	if features.HasQuestion {
		switch provider {
		case scoring.ProviderTavily:
			bonus += 0.15
		case scoring.ProviderSerper:
			bonus += 0.1
		}
	}
	if matchesAny(lowered, comparisonMarkers) {
		switch provider {
		case scoring.ProviderExa, scoring.ProviderTavily:
			bonus += 0.1
		}
	}
	if matchesAny(lowered, tutorialMarkers) {
		switch provider {
		case scoring.ProviderSerper:
			bonus += 0.15
		case scoring.ProviderBrave:
			bonus += 0.1
		}
	}
	if matchesAny(lowered, listMarkers) && provider == scoring.ProviderSerper {
		bonus += 0.1
	}

	if features.WordCount > longQueryWords {
		switch provider {
		case scoring.ProviderExa, scoring.ProviderTavily:
			bonus += 0.1
		}
	} else if features.WordCount > 0 && features.WordCount < shortQueryWords && provider == scoring.ProviderSerper {
		bonus += 0.1
	}

	if hasNamedEntity(query) {
		switch provider {
		case scoring.ProviderNewsAPI:
			bonus += 0.1
		case scoring.ProviderSerper:
			bonus += 0.05
		}
	}
	return bonus
}

func matchesAny(lowered string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// hasNamedEntity is a cheap proxy: a capitalized word after the first, or a
// quoted phrase, reads as an entity lookup.
func hasNamedEntity(query string) bool {
	if strings.Count(query, `"`) >= 2 {
		return true
	}
	words := strings.Fields(query)
	for i, word := range words {
		if i == 0 {
			continue
		}
		first := rune(word[0])
		if first >= 'A' && first <= 'Z' {
			return true
		}
	}
	return false
}
