package classify

import (
	"strings"

	"github.com/tributary-ai/search-router/internal/types"
)

// timeSensitiveVocab marks queries whose answers go stale quickly.
var timeSensitiveVocab = []string{
	"breaking", "today", "latest", "now", "live", "current",
	"recent", "this week", "this morning", "just announced",
}

// factualVocab marks queries asking for a concrete, checkable answer.
var factualVocab = []string{
	"who", "when", "where", "how many", "how much",
	"define", "definition", "fact", "date", "year",
	"population", "capital", "distance", "height",
}

const (
	timeSensitivityPerMatch = 0.4
	factualPerMatch         = 0.3
)

// QueryAnalyzer derives the read-only feature set that routing and execution
// consume. Analysis is pure: the same query text always yields the same
// features.
type QueryAnalyzer struct {
	complexity  *ComplexityClassifier
	contentType *ContentTypeDetector
}

// NewQueryAnalyzer creates an analyzer with default classifiers.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{
		complexity:  NewComplexityClassifier(),
		contentType: NewContentTypeDetector(),
	}
}

// Analyze extracts QueryFeatures from raw query text.
func (a *QueryAnalyzer) Analyze(query string) types.QueryFeatures {
	lowered := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lowered)

	complexity := a.complexity.Classify(query)

	return types.QueryFeatures{
		Length:          len(query),
		WordCount:       len(words),
		HasQuestion:     hasQuestion(lowered),
		ContentType:     a.contentType.Detect(query),
		TimeSensitivity: vocabScore(lowered, timeSensitiveVocab, timeSensitivityPerMatch),
		Complexity:      complexity.Score,
		FactualNature:   vocabScore(lowered, factualVocab, factualPerMatch),
	}
}

func hasQuestion(lowered string) bool {
	if strings.Contains(lowered, "?") {
		return true
	}
	for _, lead := range questionLeads {
		if strings.HasPrefix(lowered, lead+" ") {
			return true
		}
	}
	return false
}

func vocabScore(lowered string, vocab []string, perMatch float64) float64 {
	score := 0.0
	for _, term := range vocab {
		if strings.Contains(lowered, term) {
			score += perMatch
		}
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
