package routing

import (
	"github.com/tributary-ai/search-router/internal/scoring"
)

// Scoring modes recorded on a RoutingDecision.
const (
	ModeExplicit = "explicit"
	ModeKeyword  = "keyword"
	ModePattern  = "pattern"
	ModeScored   = "scored"
	ModeUnified  = "unified"
)

// Tier confidence is fixed per selection mode: cheaper tiers are trusted
// less.
const (
	confidenceExplicit = 1.0
	confidenceKeyword  = 0.7
	confidencePattern  = 0.8
	confidenceScored   = 0.9
)

// RoutingDecision is the output of provider selection, consumed by the
// execution layer. Providers is ordered best-first; an empty list with
// confidence 0 means no provider was eligible and the caller should degrade
// gracefully.
type RoutingDecision struct {
	// QueryID ties the decision back to the originating query
	QueryID string `json:"query_id"`

	// Providers is the ordered list of selected provider names
	Providers []string `json:"providers"`

	// Scores holds the full per-provider score breakdown when the decision
	// came from the scoring calculator
	Scores []scoring.ProviderScore `json:"scores,omitempty"`

	// Mode records which selection path produced the decision
	Mode string `json:"mode"`

	// Strategy is the chosen execution strategy name
	Strategy string `json:"strategy"`

	// Confidence in the selection, 0.0-1.0
	Confidence float64 `json:"confidence"`

	// Human-readable reasoning for the decision
	Explanation string `json:"explanation"`

	// Additional routing context (budget used, derived features)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
