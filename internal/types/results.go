package types

import (
	"time"
)

// SearchResult is one hit returned by a provider.
type SearchResult struct {
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Snippet     string            `json:"snippet,omitempty"`
	Score       float64           `json:"score,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SearchResponse is the payload one provider returns for one query.
type SearchResponse struct {
	Provider string         `json:"provider"`
	Results  []SearchResult `json:"results"`
	Cost     float64        `json:"cost,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// ProviderExecutionResult is the terminal artifact of an execution strategy
// for a single provider. Failures are captured here, never propagated as
// errors out of the strategy.
type ProviderExecutionResult struct {
	Provider string          `json:"provider"`
	Success  bool            `json:"success"`
	Response *SearchResponse `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`

	// IsPrimary marks the first provider in a cascade
	IsPrimary bool `json:"is_primary,omitempty"`

	// Skipped marks a provider that was never invoked (circuit breaker open)
	Skipped bool `json:"skipped,omitempty"`
}

// ProviderCapabilities describes what a provider handles. This is the only
// introspection the core performs on a provider.
type ProviderCapabilities struct {
	ContentTypes []ContentType `json:"content_types"`
	Features     []string      `json:"features"`
}

// SupportsContentType reports whether the provider declared the given type.
func (c ProviderCapabilities) SupportsContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}
