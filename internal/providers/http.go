package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/types"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPProviderConfig declares one JSON-over-HTTP search backend.
type HTTPProviderConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	CostPerQuery float64       `yaml:"cost_per_query"`
	ContentTypes []string      `yaml:"content_types"`
	Timeout      time.Duration `yaml:"timeout"`
}

// HTTPProvider is a generic SearchProvider backed by one HTTP endpoint: one
// POST per query, JSON body in, JSON result list out. Provider-specific wire
// formats live behind dedicated adapters; this one covers backends that speak
// the plain {query, max_results} shape.
type HTTPProvider struct {
	name   string
	config HTTPProviderConfig
	client *http.Client
	logger *logrus.Logger
}

// NewHTTPProvider creates the adapter.
func NewHTTPProvider(name string, config HTTPProviderConfig, logger *logrus.Logger) *HTTPProvider {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPProvider{
		name:   name,
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchReply struct {
	Results []types.SearchResult `json:"results"`
	Cost    float64              `json:"cost,omitempty"`
}

// Search issues one POST and maps the JSON body to a result list.
func (p *HTTPProvider) Search(ctx context.Context, query *types.SearchQuery) (*types.SearchResponse, error) {
	start := time.Now()

	body, err := json.Marshal(searchRequest{Query: query.Query, MaxResults: query.MaxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s returned status %d", p.name, resp.StatusCode)
	}

	var reply searchReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("provider %s returned invalid JSON: %w", p.name, err)
	}

	cost := reply.Cost
	if cost == 0 {
		cost = p.config.CostPerQuery
	}

	p.logger.WithFields(logrus.Fields{
		"provider": p.name,
		"results":  len(reply.Results),
		"duration": time.Since(start),
	}).Debug("Provider search completed")

	return &types.SearchResponse{
		Provider: p.name,
		Results:  reply.Results,
		Cost:     cost,
		Duration: time.Since(start),
	}, nil
}

// EstimateCost returns the configured flat per-query cost.
func (p *HTTPProvider) EstimateCost(query *types.SearchQuery) float64 {
	return p.config.CostPerQuery
}

// GetCapabilities reports the configured content types.
func (p *HTTPProvider) GetCapabilities() types.ProviderCapabilities {
	cts := make([]types.ContentType, 0, len(p.config.ContentTypes))
	for _, ct := range p.config.ContentTypes {
		cts = append(cts, types.ContentType(ct))
	}
	if len(cts) == 0 {
		cts = append(cts, types.ContentTypeGeneral)
	}
	return types.ProviderCapabilities{
		ContentTypes: cts,
		Features:     []string{"search"},
	}
}
