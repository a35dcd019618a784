package scoring

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/types"
)

// OpenAIScorer asks an OpenAI model to rank providers for a feature vector.
type OpenAIScorer struct {
	client *openai.Client
	config LLMScorerConfig
	logger *logrus.Logger
}

// NewOpenAIScorer creates a scorer backed by the OpenAI chat API.
func NewOpenAIScorer(config LLMScorerConfig, logger *logrus.Logger) *OpenAIScorer {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 256
	}

	return &OpenAIScorer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
}

// ScoreProviders sends one chat completion and parses the JSON score map.
func (s *OpenAIScorer) ScoreProviders(ctx context.Context, features types.QueryFeatures, providers []string) (map[string]float64, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: scoringPrompt(features, providers)},
		},
	})
	if err != nil {
		s.logger.WithError(err).Warn("OpenAI scoring call failed")
		return nil, fmt.Errorf("openai scoring call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai scoring call returned no choices")
	}

	return parseScores(resp.Choices[0].Message.Content, providers)
}
