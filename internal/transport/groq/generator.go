// Package groq generates grounded answers via Groq's OpenAI-compatible
// chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/metrics"
	"github.com/anoguera/cvassist/internal/prompt"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Generator delegates answer generation to a hosted language model.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config holds the language model settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32 // low (near 0.2) to minimize invention beyond supplied context
	MaxTokens   int
	Logger      *zap.Logger
}

// NewGenerator creates a chat completion client against an
// OpenAI-compatible endpoint.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Model returns the configured chat model identifier.
func (g *Generator) Model() string { return g.model }

// Generate sends the assembled prompt to the language model and returns
// the answer text. Upstream failures are wrapped with
// domain.ErrGenerationFailed so the interactive boundary can degrade
// gracefully instead of crashing the turn.
func (g *Generator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseAPIError wraps upstream chat API failures with domain.ErrGenerationFailed.
func parseAPIError(err error) error {
	wrap := domain.ErrGenerationFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.UpstreamStatusError{
			Status: reqErr.HTTPStatusCode,
			Err:    fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamStatusError{
			Status: apiErr.HTTPStatusCode,
			Err:    fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap),
		}
	}

	return fmt.Errorf("chat completion failed: %w", wrap)
}
