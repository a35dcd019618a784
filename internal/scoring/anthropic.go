package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/types"
)

// AnthropicScorer asks a Claude model to rank providers for a feature vector.
type AnthropicScorer struct {
	client *anthropic.Client
	config LLMScorerConfig
	logger *logrus.Logger
}

// NewAnthropicScorer creates a scorer backed by the Anthropic messages API.
func NewAnthropicScorer(config LLMScorerConfig, logger *logrus.Logger) *AnthropicScorer {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Model == "" {
		config.Model = "claude-3-haiku-20240307"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 256
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicScorer{
		client: &client,
		config: config,
		logger: logger,
	}
}

// ScoreProviders sends one message and parses the JSON score map.
func (s *AnthropicScorer) ScoreProviders(ctx context.Context, features types.QueryFeatures, providers []string) (map[string]float64, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(scoringPrompt(features, providers))),
		},
	})
	if err != nil {
		s.logger.WithError(err).Warn("Anthropic scoring call failed")
		return nil, fmt.Errorf("anthropic scoring call failed: %w", err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	return parseScores(reply.String(), providers)
}
