package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/types"
)

// Component weights of the final score.
const (
	weightBase           = 0.4
	weightPerformance    = 0.3
	weightRecency        = 0.2
	weightSpecialization = 0.1

	// recencyDecayHours controls the exponential decay of the recency bonus
	recencyDecayHours = 24.0

	// neutralPerformance is assumed for providers with no recorded history
	neutralPerformance = 0.5
)

// ProviderScore is one provider's score for one query. Ephemeral: built per
// routing decision and discarded with it.
type ProviderScore struct {
	Provider            string  `json:"provider"`
	BaseScore           float64 `json:"base_score"`
	PerformanceScore    float64 `json:"performance_score"`
	RecencyBonus        float64 `json:"recency_bonus"`
	SpecializationBonus float64 `json:"specialization_bonus"`
	Confidence          float64 `json:"confidence"`
	FinalScore          float64 `json:"final_score"`
	Explanation         string  `json:"explanation"`
}

// HistoricalMetrics is the optional per-provider performance history the
// calculator folds into the performance component.
type HistoricalMetrics struct {
	AvgResponseTime time.Duration `json:"avg_response_time"`
	SuccessRate     float64       `json:"success_rate"`
	ResultQuality   float64       `json:"result_quality"`
	DataFreshness   time.Time     `json:"data_freshness"`
	SampleCount     int           `json:"sample_count"`
}

// MetricsStore accumulates execution outcomes into HistoricalMetrics, one
// entry per provider, under a single lock.
type MetricsStore struct {
	mutex   sync.Mutex
	entries map[string]*HistoricalMetrics
}

// NewMetricsStore creates an empty store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{entries: make(map[string]*HistoricalMetrics)}
}

// Record folds one execution outcome into the provider's history using an
// exponentially weighted moving average.
func (ms *MetricsStore) Record(provider string, duration time.Duration, success bool, quality float64) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	entry, ok := ms.entries[provider]
	if !ok {
		entry = &HistoricalMetrics{ResultQuality: quality}
		ms.entries[provider] = entry
	}

	const alpha = 0.2
	successValue := 0.0
	if success {
		successValue = 1.0
	}

	if entry.SampleCount == 0 {
		entry.AvgResponseTime = duration
		entry.SuccessRate = successValue
		entry.ResultQuality = quality
	} else {
		entry.AvgResponseTime = time.Duration(float64(entry.AvgResponseTime)*(1-alpha) + float64(duration)*alpha)
		entry.SuccessRate = entry.SuccessRate*(1-alpha) + successValue*alpha
		entry.ResultQuality = entry.ResultQuality*(1-alpha) + quality*alpha
	}
	entry.SampleCount++
	entry.DataFreshness = time.Now()
}

// Get returns a copy of the provider's history, or nil when none exists.
func (ms *MetricsStore) Get(provider string) *HistoricalMetrics {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	entry, ok := ms.entries[provider]
	if !ok {
		return nil
	}
	copied := *entry
	return &copied
}

// Calculator produces one ProviderScore per provider per query from the fixed
// affinity tables, optional historical metrics, recency and specialization.
type Calculator struct {
	metrics *MetricsStore
	logger  *logrus.Logger
}

// NewCalculator creates a calculator. The metrics store may be shared with
// the execution layer so outcomes feed back into future scores.
func NewCalculator(metrics *MetricsStore, logger *logrus.Logger) *Calculator {
	if metrics == nil {
		metrics = NewMetricsStore()
	}
	return &Calculator{metrics: metrics, logger: logger}
}

// Metrics exposes the underlying store for outcome recording.
func (c *Calculator) Metrics() *MetricsStore {
	return c.metrics
}

// Score computes the weighted score of one provider for the given features.
func (c *Calculator) Score(provider string, features types.QueryFeatures) ProviderScore {
	base := Affinity(provider, features.ContentType)
	spec := Specialization(provider, features.ContentType)

	perf := neutralPerformance
	hasHistory := false
	history := c.metrics.Get(provider)
	if history != nil && history.SampleCount > 0 {
		hasHistory = true
		perf = performanceScore(history)
	}

	recency := 0.0
	if features.TimeSensitivity > 0 && history != nil && !history.DataFreshness.IsZero() {
		ageHours := time.Since(history.DataFreshness).Hours()
		recency = features.TimeSensitivity * math.Exp(-ageHours/recencyDecayHours)
	}

	final := weightBase*base + weightPerformance*perf + weightRecency*recency + weightSpecialization*spec

	confidence := 0.5
	if hasHistory {
		confidence += 0.2
	}
	if base > neutralAffinity {
		confidence += 0.2
	}
	if spec > 0 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return ProviderScore{
		Provider:            provider,
		BaseScore:           base,
		PerformanceScore:    perf,
		RecencyBonus:        recency,
		SpecializationBonus: spec,
		Confidence:          confidence,
		FinalScore:          final,
		Explanation:         explainScore(provider, base, perf, recency, spec, hasHistory),
	}
}

// ScoreAll scores every named provider and returns the scores sorted by final
// score, best first.
func (c *Calculator) ScoreAll(providers []string, features types.QueryFeatures) []ProviderScore {
	scores := make([]ProviderScore, 0, len(providers))
	for _, name := range providers {
		scores = append(scores, c.Score(name, features))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].FinalScore > scores[j].FinalScore
	})

	return scores
}

// performanceScore blends sigmoid-smoothed response time, success rate and
// result quality (0.3 / 0.4 / 0.3).
func performanceScore(h *HistoricalMetrics) float64 {
	rtMillis := float64(h.AvgResponseTime.Milliseconds())
	// ~1.0 well under a second, ~0.5 at one second, approaching 0 past 3s
	speed := 1.0 / (1.0 + math.Exp((rtMillis-1000.0)/500.0))

	return 0.3*speed + 0.4*h.SuccessRate + 0.3*h.ResultQuality
}

func explainScore(provider string, base, perf, recency, spec float64, hasHistory bool) string {
	parts := []string{fmt.Sprintf("affinity %.2f", base)}
	if hasHistory {
		parts = append(parts, fmt.Sprintf("performance %.2f", perf))
	}
	if recency > 0 {
		parts = append(parts, fmt.Sprintf("recency %.2f", recency))
	}
	if spec > 0 {
		parts = append(parts, fmt.Sprintf("specialization %.2f", spec))
	}
	return fmt.Sprintf("%s: %s", provider, strings.Join(parts, ", "))
}
