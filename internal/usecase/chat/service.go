// Package chat answers questions about the résumé: embed the question,
// retrieve the nearest passages, assemble a grounded prompt, and
// generate the answer with a hosted language model.
package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/metrics"
	"github.com/anoguera/cvassist/internal/profile"
	"github.com/anoguera/cvassist/internal/prompt"
	"github.com/anoguera/cvassist/internal/retry"
)

// DefaultTopK is how many passages a query retrieves when unconfigured.
const DefaultTopK = 5

// Answer is a generated reply plus the passages that grounded it.
type Answer struct {
	Text    string
	Sources domain.RetrievalResult
}

// Service orchestrates the question answering pipeline.
type Service struct {
	embed     Embedder
	store     Store
	generate  Generator
	assembler *prompt.Assembler
	prof      profile.Profile
	logger    *zap.Logger
	topK      int
	policy    retry.Policy
}

// New creates a chat service.
func New(
	embed Embedder, store Store, gen Generator,
	assembler *prompt.Assembler, prof profile.Profile, logger *zap.Logger,
) *Service {
	return &Service{
		embed:     embed,
		store:     store,
		generate:  gen,
		assembler: assembler,
		prof:      prof,
		logger:    logger,
		topK:      DefaultTopK,
		policy: retry.Policy{
			MaxAttempts: 3,
			Retryable:   isTransient,
		},
	}
}

// WithTopK configures how many passages each query retrieves.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Retrieve embeds the question and returns the nearest passages, ordered
// by descending similarity. It refuses to query an index whose manifest
// names a different embedding model: distances between vectors from
// different models are meaningless.
func (s *Service) Retrieve(ctx context.Context, question string) (domain.RetrievalResult, error) {
	if err := s.checkManifest(ctx); err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var emb domain.EmbeddingResult
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var embErr error
		emb, embErr = s.embed.Embed(ctx, question)
		return embErr
	})
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embed question: %w", err)
	}

	var result domain.RetrievalResult
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		var qErr error
		result, qErr = s.store.Query(ctx, emb.Embedding, s.topK)
		return qErr
	})
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query index: %w", err)
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	metrics.RetrievalPassages.Observe(float64(len(result)))
	s.logger.Debug("passages retrieved",
		zap.Int("count", len(result)),
		zap.Int("top_k", s.topK),
	)
	return result, nil
}

// Ask runs the full pipeline for one conversation turn. An empty
// retrieval is not an error: the prompt tells the model what to say
// when nothing relevant was found.
func (s *Service) Ask(ctx context.Context, question string, history []domain.ConversationTurn) (Answer, error) {
	retrieved, err := s.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	p := s.assembler.Assemble(question, retrieved, s.prof, history)

	var text string
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		var genErr error
		text, genErr = s.generate.Generate(ctx, p)
		return genErr
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("question answered",
		zap.Int("passages", len(retrieved)),
		zap.Int("history_turns", len(history)),
	)
	return Answer{Text: text, Sources: retrieved}, nil
}

// checkManifest verifies the index was ingested with the configured
// embedding model.
func (s *Service) checkManifest(ctx context.Context) error {
	m, err := s.store.ReadManifest(ctx)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if m.EmbeddingModel != s.embed.Model() {
		return fmt.Errorf(
			"index was ingested with %q but queries use %q, re-ingest required: %w",
			m.EmbeddingModel, s.embed.Model(), domain.ErrModelVersionMismatch,
		)
	}
	return nil
}

// isTransient reports whether an upstream failure is worth retrying.
// Permanent provider rejections (auth, malformed input) never heal on a
// second attempt and are excluded by status.
func isTransient(err error) bool {
	if !domain.RetryableUpstream(err) {
		return false
	}
	return errors.Is(err, domain.ErrEmbeddingProvider) ||
		errors.Is(err, domain.ErrIndexUnavailable) ||
		errors.Is(err, domain.ErrGenerationFailed)
}
