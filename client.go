// Package cvassist embeds the résumé question answering pipeline in a Go
// program without the HTTP server: ingest a document, then ask questions
// against it.
package cvassist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/chunk"
	dbRedis "github.com/anoguera/cvassist/internal/db/redis"
	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/extract"
	"github.com/anoguera/cvassist/internal/profile"
	"github.com/anoguera/cvassist/internal/prompt"
	passagerepo "github.com/anoguera/cvassist/internal/repository/passage"
	"github.com/anoguera/cvassist/internal/transport/groq"
	openaiEmb "github.com/anoguera/cvassist/internal/transport/openai"
	chatuc "github.com/anoguera/cvassist/internal/usecase/chat"
	ingestuc "github.com/anoguera/cvassist/internal/usecase/ingest"
)

const defaultReadinessTimeout = 10 * time.Second

// Answer is a generated reply plus the passages that grounded it.
type Answer = chatuc.Answer

// Report summarizes a completed ingestion run.
type Report = ingestuc.Report

// Turn is one message of conversation history.
type Turn = domain.ConversationTurn

// Client is the embedded pipeline entry point.
type Client struct {
	store  *dbRedis.Store
	ingest *ingestuc.Service
	chat   *chatuc.Service
}

// New creates a Client and connects to the vector store. ctx bounds the
// initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection:   "cv",
		keyPrefix:    "cvassist:",
		maxChars:     700,
		overlap:      100,
		batchSize:    ingestuc.DefaultBatchSize,
		topK:         chatuc.DefaultTopK,
		historyTurns: 6,
		temperature:  0.2,
		maxTokens:    600,
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("cvassist: store address required (use WithRedis)")
	}
	if cfg.embeddingModel == "" || cfg.dimensions <= 0 {
		return nil, errors.New("cvassist: embedding model and dimensions required (use WithEmbedding)")
	}

	chunker, err := chunk.New(cfg.maxChars, cfg.overlap)
	if err != nil {
		return nil, fmt.Errorf("cvassist: %w", err)
	}

	var prof profile.Profile
	if cfg.profilePath != "" {
		prof, err = profile.Load(cfg.profilePath)
		if err != nil {
			return nil, fmt.Errorf("cvassist: %w", err)
		}
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("cvassist: create store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("cvassist: store not ready: %w", err)
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.embeddingKey,
		BaseURL:    cfg.embeddingBaseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Logger:     cfg.logger,
	})

	var generator chatuc.Generator = noopGenerator{}
	if cfg.generationModel != "" {
		generator = groq.NewGenerator(&groq.Config{
			APIKey:      cfg.generationKey,
			BaseURL:     cfg.generationBaseURL,
			Model:       cfg.generationModel,
			Temperature: cfg.temperature,
			MaxTokens:   cfg.maxTokens,
			Logger:      cfg.logger,
		})
	}

	repo := passagerepo.New(store, cfg.keyPrefix, cfg.collection)

	ingestSvc := ingestuc.New(
		ingestuc.ExtractorFunc(extract.Extract),
		chunker, embedder, repo, cfg.logger,
	).WithBatchSize(cfg.batchSize)

	chatSvc := chatuc.New(
		embedder, repo, generator,
		prompt.NewAssembler(cfg.historyTurns),
		prof, cfg.logger,
	).WithTopK(cfg.topK)

	return &Client{store: store, ingest: ingestSvc, chat: chatSvc}, nil
}

// Close releases the store connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest indexes the document at path, replacing any prior ingestion of
// the same collection.
func (c *Client) Ingest(ctx context.Context, path string) (Report, error) {
	return c.ingest.Run(ctx, path)
}

// Ask answers one conversation turn grounded in the indexed document.
func (c *Client) Ask(ctx context.Context, question string, history []Turn) (Answer, error) {
	return c.chat.Ask(ctx, question, history)
}

// Retrieve returns the passages nearest to the question without
// generating an answer.
func (c *Client) Retrieve(ctx context.Context, question string) (domain.RetrievalResult, error) {
	return c.chat.Retrieve(ctx, question)
}

// noopGenerator rejects generation when no model is configured. Ingest
// and Retrieve still work.
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _ prompt.Prompt) (string, error) {
	return "", errors.New(
		"cvassist: generation model not configured (use WithGeneration to answer questions)",
	)
}
