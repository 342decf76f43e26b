// Package ingest runs the offline indexing pipeline: extract document
// text, split it into overlapping passages, embed them in batches, and
// upsert the vectors plus a model manifest into the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/retry"
)

// DefaultBatchSize bounds how many passages go into one embedding call.
const DefaultBatchSize = 64

// Report summarizes a completed ingestion run.
type Report struct {
	Passages    int
	Batches     int
	TotalTokens int
	Model       string
	Dimensions  int
}

// Service orchestrates the ingestion pipeline.
type Service struct {
	extract   Extractor
	split     Splitter
	embed     Embedder
	store     Store
	logger    *zap.Logger
	batchSize int
	policy    retry.Policy
	now       func() time.Time
}

// New creates an ingestion service.
func New(extract Extractor, split Splitter, embed Embedder, store Store, logger *zap.Logger) *Service {
	return &Service{
		extract:   extract,
		split:     split,
		embed:     embed,
		store:     store,
		logger:    logger,
		batchSize: DefaultBatchSize,
		policy: retry.Policy{
			MaxAttempts: 3,
			Retryable:   isTransient,
		},
		now: time.Now,
	}
}

// WithBatchSize configures the embedding batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Run executes the full pipeline against the document at path. The index
// is (re)created before the first upsert, and the model manifest is
// written only after every passage landed, so a partially ingested
// collection never claims a model it does not hold.
func (s *Service) Run(ctx context.Context, path string) (Report, error) {
	text, err := s.extract.Extract(path)
	if err != nil {
		return Report{}, fmt.Errorf("extract %s: %w", path, err)
	}

	passages := s.split.Split(text)
	if len(passages) == 0 {
		return Report{}, fmt.Errorf("split %s: %w", path, domain.ErrNoExtractableText)
	}
	s.logger.Info("document split into passages",
		zap.String("path", path),
		zap.Int("passages", len(passages)),
	)

	report := Report{
		Passages:   len(passages),
		Model:      s.embed.Model(),
		Dimensions: s.embed.Dimensions(),
	}

	for start := 0; start < len(passages); start += s.batchSize {
		end := start + s.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		tokens, err := s.embedBatch(ctx, batch)
		if err != nil {
			return Report{}, fmt.Errorf("embed passages %s..%s: %w",
				batch[0].ID, batch[len(batch)-1].ID, err)
		}
		report.Batches++
		report.TotalTokens += tokens
		s.logger.Info("batch embedded",
			zap.Int("batch", report.Batches),
			zap.Int("size", len(batch)),
			zap.Int("tokens", tokens),
		)
	}

	prior, err := s.priorManifest(ctx)
	if err != nil {
		return Report{}, err
	}

	if manifestChanged(prior, s.embed.Model(), s.embed.Dimensions()) {
		s.logger.Info("embedding model changed, recreating index",
			zap.String("old_model", prior.EmbeddingModel),
			zap.String("new_model", s.embed.Model()),
		)
		if err := s.store.RecreateIndex(ctx, s.embed.Dimensions()); err != nil {
			return Report{}, fmt.Errorf("recreate index: %w", err)
		}
	} else if err := s.store.EnsureIndex(ctx, s.embed.Dimensions()); err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}

	if err := s.upsert(ctx, passages); err != nil {
		return Report{}, fmt.Errorf("upsert passages: %w", err)
	}

	if err := s.pruneStale(ctx, prior.PassageCount, len(passages)); err != nil {
		return Report{}, err
	}

	manifest := domain.IndexManifest{
		EmbeddingModel: s.embed.Model(),
		Dimensions:     s.embed.Dimensions(),
		PassageCount:   len(passages),
		IngestedAt:     s.now().UTC(),
	}
	if err := s.store.WriteManifest(ctx, manifest); err != nil {
		return Report{}, fmt.Errorf("write manifest: %w", err)
	}

	s.logger.Info("ingestion complete",
		zap.Int("passages", report.Passages),
		zap.Int("batches", report.Batches),
		zap.Int("tokens", report.TotalTokens),
		zap.String("model", report.Model),
	)
	return report, nil
}

// embedBatch vectorizes one batch with retries and writes the vectors
// back into the passages. Returns the tokens spent on the batch.
func (s *Service) embedBatch(ctx context.Context, batch []domain.Passage) (int, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.Text
	}

	var result domain.BatchEmbeddingResult
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var embErr error
		result, embErr = s.embed.BatchEmbed(ctx, texts)
		return embErr
	})
	if err != nil {
		return 0, err
	}
	if len(result.Embeddings) != len(batch) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d: %w",
			len(result.Embeddings), len(batch), domain.ErrEmbeddingProvider)
	}

	for i := range batch {
		batch[i].Vector = result.Embeddings[i]
	}
	return result.TotalTokens, nil
}

// priorManifest loads the manifest of the previous ingestion run. A
// collection that was never ingested yields a zero manifest.
func (s *Service) priorManifest(ctx context.Context) (domain.IndexManifest, error) {
	m, err := s.store.ReadManifest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrManifestNotFound) {
			return domain.IndexManifest{}, nil
		}
		return domain.IndexManifest{}, fmt.Errorf("read prior manifest: %w", err)
	}
	return m, nil
}

func manifestChanged(prior domain.IndexManifest, model string, dim int) bool {
	if prior.EmbeddingModel == "" {
		return false
	}
	return prior.EmbeddingModel != model || prior.Dimensions != dim
}

// pruneStale deletes passages left behind when the new document splits
// into fewer chunks than the previous one. Ids overlapping the new run
// were already overwritten by the upsert.
func (s *Service) pruneStale(ctx context.Context, oldCount, newCount int) error {
	if oldCount <= newCount {
		return nil
	}
	stale := make([]string, 0, oldCount-newCount)
	for i := newCount; i < oldCount; i++ {
		stale = append(stale, domain.PassageID(i))
	}
	if err := s.store.Delete(ctx, stale); err != nil {
		return fmt.Errorf("prune %d stale passages: %w", len(stale), err)
	}
	s.logger.Info("stale passages pruned",
		zap.Int("deleted", len(stale)),
		zap.Int("kept", newCount),
	)
	return nil
}

func (s *Service) upsert(ctx context.Context, passages []domain.Passage) error {
	return s.policy.Do(ctx, func(ctx context.Context) error {
		return s.store.Upsert(ctx, passages)
	})
}

// isTransient reports whether an upstream failure is worth retrying.
// Config and content errors never heal on a second attempt, and neither
// do permanent provider rejections (auth, malformed input).
func isTransient(err error) bool {
	if !domain.RetryableUpstream(err) {
		return false
	}
	return errors.Is(err, domain.ErrEmbeddingProvider) ||
		errors.Is(err, domain.ErrIndexUnavailable)
}
