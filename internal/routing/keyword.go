package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/classify"
	"github.com/tributary-ai/search-router/internal/scoring"
)

// Static tier-1 tables. Keyword matching is deliberately crude: this tier
// exists to answer simple queries without paying for pattern analysis or
// LLM scoring.
var providerKeywords = map[string][]string{
	scoring.ProviderNewsAPI:   {"news", "breaking", "headline", "headlines", "today", "latest"},
	scoring.ProviderTavily:    {"news", "answer", "summary", "search", "find"},
	scoring.ProviderExa:       {"research", "paper", "papers", "academic", "study", "science"},
	scoring.ProviderSerper:    {"search", "find", "lookup", "results", "google"},
	scoring.ProviderFirecrawl: {"extract", "scrape", "crawl", "website", "page"},
	scoring.ProviderBrave:     {"search", "web", "find", "privacy"},
}

var providerPriority = map[string]float64{
	scoring.ProviderNewsAPI:   1.2,
	scoring.ProviderExa:       1.2,
	scoring.ProviderTavily:    1.1,
	scoring.ProviderSerper:    1.0,
	scoring.ProviderFirecrawl: 1.0,
	scoring.ProviderBrave:     0.9,
}

// timeSensitiveKeywords double the score of news-affine providers when
// present.
var timeSensitiveKeywords = []string{"breaking", "today", "latest", "now", "live", "current", "recent"}

var newsAffineProviders = map[string]bool{
	scoring.ProviderNewsAPI: true,
	scoring.ProviderTavily:  true,
}

const timeSensitiveBoost = 2.0

// keywordScoreThreshold is the minimum score to make the selection on merit.
const keywordScoreThreshold = 1.0

const (
	keywordMinProviders = 3
	keywordMaxProviders = 5
)

// defaultProviders is returned when nothing matches, and pads short
// selections up to the minimum.
var defaultProviders = []string{
	scoring.ProviderSerper,
	scoring.ProviderTavily,
	scoring.ProviderBrave,
}

// urlProviders handles queries that contain a URL or bare domain: those are
// extraction jobs, not searches.
var urlProviders = []string{
	scoring.ProviderFirecrawl,
	scoring.ProviderTavily,
	scoring.ProviderSerper,
}

// KeywordRouter is the tier-1 selector: fixed keyword tables weighted by a
// static per-provider priority. Fast and deterministic.
type KeywordRouter struct {
	logger *logrus.Logger
}

// NewKeywordRouter creates the tier-1 router.
func NewKeywordRouter(logger *logrus.Logger) *KeywordRouter {
	return &KeywordRouter{logger: logger}
}

// Select returns an ordered provider list for the query plus a short
// explanation. URL-bearing queries short-circuit to the extraction set.
func (r *KeywordRouter) Select(query string) ([]string, string) {
	if classify.ContainsURL(query) {
		return append([]string(nil), urlProviders...), "url detected, routed to extraction providers"
	}

	lowered := strings.ToLower(query)
	boost := 1.0
	for _, kw := range timeSensitiveKeywords {
		if strings.Contains(lowered, kw) {
			boost = timeSensitiveBoost
			break
		}
	}

	type scored struct {
		provider string
		score    float64
	}
	var candidates []scored
	for provider, keywords := range providerKeywords {
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		score := float64(matches) * providerPriority[provider]
		if boost > 1.0 && newsAffineProviders[provider] {
			score *= boost
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
		if c.score > keywordScoreThreshold && len(selected) < keywordMaxProviders {
			selected = append(selected, c.provider)
		}
	}

	if len(selected) == 0 {
		return append([]string(nil), defaultProviders...), "no keyword matches, default provider set"
	}

	// pad short selections from the default set
	for _, name := range defaultProviders {
		if len(selected) >= keywordMinProviders {
			break
		}
		if !containsString(selected, name) {
			selected = append(selected, name)
		}
	}

	explanation := fmt.Sprintf("keyword match selected %d providers", len(selected))
	if boost > 1.0 {
		explanation += " (time-sensitive boost applied)"
	}
	return selected, explanation
}

func containsString(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}
