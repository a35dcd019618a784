package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tributary-ai/search-router/internal/types"
)

// Factor contribution caps. The clamped sum maps to the routing tier.
const (
	wordCountCap   = 0.25
	analyticalCap  = 0.40
	questionWeight = 0.20
	multiIntentCap = 0.20
	crossDomainCap = 0.20
	ambiguityCap   = 0.10

	simpleThreshold  = 0.3
	complexThreshold = 0.7
)

var analyticalKeywords = []string{
	"analyze", "analyse", "analysis", "compare", "comparison", "contrast",
	"evaluate", "evaluation", "assess", "explain", "implications", "impact",
	"trade-off", "tradeoff", "tradeoffs", "pros and cons", "synthesize",
	"critique", "forecast", "predict", "relationship", "correlation",
	"cause", "effect", "trend", "in depth", "comprehensive",
}

var ambiguityWords = []string{
	"best", "good", "top", "great", "better", "interesting",
	"relevant", "appropriate", "suitable", "some", "things",
}

var intentMarkers = []string{
	" and ", " also ", " as well as ", " plus ", " along with ",
	" or ", "; ", " then ",
}

var questionLeads = []string{
	"what", "why", "how", "when", "where", "who", "which",
	"can", "could", "should", "would", "is", "are", "do", "does",
}

// domainVocab groups keywords by knowledge domain; a query touching two or
// more domains earns the cross-domain contribution.
var domainVocab = map[string][]string{
	"technology": {"software", "api", "code", "programming", "ai", "machine learning", "cloud", "database", "algorithm", "computing"},
	"finance":    {"stock", "market", "investment", "revenue", "economy", "inflation", "budget", "earnings", "valuation"},
	"health":     {"health", "medical", "disease", "treatment", "clinical", "vaccine", "drug", "patient"},
	"law":        {"legal", "regulation", "compliance", "law", "policy", "court", "liability", "gdpr"},
	"science":    {"research", "experiment", "physics", "chemistry", "biology", "quantum", "climate", "genome"},
	"politics":   {"election", "government", "senate", "geopolitics", "sanctions", "diplomacy", "legislation"},
}

var listMarkerPattern = regexp.MustCompile(`(^|\s)\d+[.)]\s`)

// ComplexityClassifier scores query complexity from lexical heuristics. It is
// pure: identical query text always yields an identical score, so routing
// decisions are reproducible.
type ComplexityClassifier struct{}

// NewComplexityClassifier creates a classifier.
func NewComplexityClassifier() *ComplexityClassifier {
	return &ComplexityClassifier{}
}

// Classify scores the query 0.0–1.0 and maps it to a discrete level.
func (c *ComplexityClassifier) Classify(query string) types.ComplexityScore {
	lowered := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lowered)

	factors := map[string]float64{
		"word_count":   wordCountFactor(len(words)),
		"analytical":   keywordFactor(lowered, analyticalKeywords, 0.10, analyticalCap),
		"question":     questionFactor(lowered, words),
		"multi_intent": multiIntentFactor(lowered),
		"cross_domain": crossDomainFactor(lowered),
		"ambiguity":    keywordFactor(lowered, ambiguityWords, 0.05, ambiguityCap),
	}

	total := 0.0
	for _, v := range factors {
		total += v
	}
	if total > 1.0 {
		total = 1.0
	}
	if total < 0 {
		total = 0
	}

	return types.ComplexityScore{
		Score:       total,
		Level:       LevelFor(total),
		Factors:     factors,
		Explanation: explain(total, factors),
	}
}

// LevelFor maps a complexity score to its routing tier: scores below 0.3 are
// simple, below 0.7 medium, and 0.7 or above complex.
func LevelFor(score float64) types.ComplexityLevel {
	switch {
	case score < simpleThreshold:
		return types.ComplexitySimple
	case score < complexThreshold:
		return types.ComplexityMedium
	default:
		return types.ComplexityComplex
	}
}

func wordCountFactor(count int) float64 {
	switch {
	case count <= 3:
		return 0.0
	case count <= 7:
		return 0.10
	case count <= 14:
		return 0.18
	default:
		return wordCountCap
	}
}

func keywordFactor(lowered string, keywords []string, perMatch, limit float64) float64 {
	total := 0.0
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			total += perMatch
			if total >= limit {
				return limit
			}
		}
	}
	return total
}

func questionFactor(lowered string, words []string) float64 {
	if strings.Contains(lowered, "?") {
		return questionWeight
	}
	if len(words) == 0 {
		return 0
	}
	for _, lead := range questionLeads {
		if words[0] == lead {
			return questionWeight
		}
	}
	return 0
}

// multiIntentFactor estimates how many separate asks the query carries from
// conjunctions and list markers.
func multiIntentFactor(lowered string) float64 {
	markers := 0
	for _, m := range intentMarkers {
		markers += strings.Count(lowered, m)
	}
	markers += len(listMarkerPattern.FindAllString(lowered, -1))

	factor := float64(markers) * 0.10
	if factor > multiIntentCap {
		return multiIntentCap
	}
	return factor
}

func crossDomainFactor(lowered string) float64 {
	matched := 0
	for _, vocab := range domainVocab {
		for _, kw := range vocab {
			if strings.Contains(lowered, kw) {
				matched++
				break
			}
		}
	}
	if matched >= 2 {
		return crossDomainCap
	}
	return 0
}

func explain(total float64, factors map[string]float64) string {
	names := make([]string, 0, len(factors))
	for name, v := range factors {
		if v > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("score %.2f (%s): no complexity signals", total, LevelFor(total))
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%.2f", name, factors[name])
	}
	return fmt.Sprintf("score %.2f (%s): %s", total, LevelFor(total), strings.Join(parts, ", "))
}
