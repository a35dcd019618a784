package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tributary-ai/search-router/internal/types"
)

// LLMScorerConfig configures an LLM-assisted tier-3 scorer.
type LLMScorerConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// scoringPrompt builds the instruction sent to the model. The reply must be a
// bare JSON object mapping provider name to a 0.0–1.0 score.
func scoringPrompt(features types.QueryFeatures, providers []string) string {
	sorted := make([]string, len(providers))
	copy(sorted, providers)
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString("You rank search providers for a query routing engine.\n")
	sb.WriteString("Query features:\n")
	fmt.Fprintf(&sb, "- content type: %s\n", features.ContentType)
	fmt.Fprintf(&sb, "- word count: %d\n", features.WordCount)
	fmt.Fprintf(&sb, "- question form: %t\n", features.HasQuestion)
	fmt.Fprintf(&sb, "- time sensitivity: %.2f\n", features.TimeSensitivity)
	fmt.Fprintf(&sb, "- complexity: %.2f\n", features.Complexity)
	fmt.Fprintf(&sb, "- factual nature: %.2f\n", features.FactualNature)
	fmt.Fprintf(&sb, "Providers: %s\n", strings.Join(sorted, ", "))
	sb.WriteString("Respond with only a JSON object mapping each provider name to a score between 0.0 and 1.0.\n")
	return sb.String()
}

// parseScores extracts the provider→score object from a model reply, tolerating
// surrounding prose or markdown fences.
func parseScores(reply string, providers []string) (map[string]float64, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in scorer reply")
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scorer reply: %w", err)
	}

	scores := make(map[string]float64, len(providers))
	for _, name := range providers {
		score, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("scorer reply missing provider %s", name)
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[name] = score
	}
	return scores, nil
}
