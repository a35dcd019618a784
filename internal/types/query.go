package types

import (
	"strings"
	"time"
)

// ContentType is the coarse category a query is classified into. Providers
// declare which content types they serve well.
type ContentType string

const (
	ContentTypeNews       ContentType = "news"
	ContentTypeTechnical  ContentType = "technical"
	ContentTypeAcademic   ContentType = "academic"
	ContentTypeBusiness   ContentType = "business"
	ContentTypeWebContent ContentType = "web_content"
	ContentTypeGeneral    ContentType = "general"
)

// AllContentTypes lists every content type in a stable order.
var AllContentTypes = []ContentType{
	ContentTypeNews,
	ContentTypeTechnical,
	ContentTypeAcademic,
	ContentTypeBusiness,
	ContentTypeWebContent,
	ContentTypeGeneral,
}

// SearchQuery is the immutable input to the routing pipeline.
type SearchQuery struct {
	// Unique identifier for this query, assigned by the caller
	ID string `json:"id"`

	// The query text
	Query string `json:"query"`

	// Maximum number of results the caller wants back
	MaxResults int `json:"max_results,omitempty"`

	// Explicit provider list; when set, routing is bypassed
	Providers []string `json:"providers,omitempty"`

	// Monetary budget for this query in USD; nil means unconstrained
	Budget *float64 `json:"budget,omitempty"`

	// Overall timeout; nil means the configured default applies
	Timeout *time.Duration `json:"timeout,omitempty"`

	// Advanced mode relaxes provider caps and enables tier-3 scoring
	AdvancedMode bool `json:"advanced_mode,omitempty"`

	// Free-text hints influencing routing (e.g. "cascade", "prefer news")
	RoutingHints string `json:"routing_hints,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// WantsCascade reports whether the caller explicitly asked for sequential
// fallback execution via routing hints.
func (q *SearchQuery) WantsCascade() bool {
	return strings.Contains(strings.ToLower(q.RoutingHints), "cascade")
}

// QueryFeatures is the read-only feature vector derived from a query by the
// analysis collaborator. It is passed by value through the whole core.
type QueryFeatures struct {
	Length          int         `json:"length"`
	WordCount       int         `json:"word_count"`
	HasQuestion     bool        `json:"has_question"`
	ContentType     ContentType `json:"content_type"`
	TimeSensitivity float64     `json:"time_sensitivity"`
	Complexity      float64     `json:"complexity"`
	FactualNature   float64     `json:"factual_nature"`
}

// ComplexityLevel is the discrete routing tier selector.
type ComplexityLevel string

const (
	ComplexitySimple  ComplexityLevel = "simple"
	ComplexityMedium  ComplexityLevel = "medium"
	ComplexityComplex ComplexityLevel = "complex"
)

// ComplexityScore is the full output of the complexity classifier. Computed
// fresh per query and never persisted.
type ComplexityScore struct {
	Score       float64            `json:"score"`
	Level       ComplexityLevel    `json:"level"`
	Factors     map[string]float64 `json:"factors"`
	Explanation string             `json:"explanation"`
}
