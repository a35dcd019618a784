package providers

import (
	"context"

	"github.com/tributary-ai/search-router/internal/types"
)

// SearchProvider is the narrow contract every search backend satisfies.
// The core never inspects a provider beyond these three operations.
type SearchProvider interface {
	Search(ctx context.Context, query *types.SearchQuery) (*types.SearchResponse, error)
	EstimateCost(query *types.SearchQuery) float64
	GetCapabilities() types.ProviderCapabilities
}

// Registry is a read-only name→provider map. It is built once at startup and
// shared without locking.
type Registry map[string]SearchProvider

// Names returns the registered provider names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
