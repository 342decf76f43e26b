package ingest

import (
	"context"

	"github.com/anoguera/cvassist/internal/domain"
)

// Extractor pulls normalized plain text out of a source document.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(path string) (string, error) { return f(path) }

// Splitter cuts document text into overlapping passages.
type Splitter interface {
	Split(text string) []domain.Passage
}

// Embedder vectorizes passage batches and identifies the model that
// produced the vectors.
type Embedder interface {
	domain.BatchEmbedder
	Model() string
	Dimensions() int
}

// Store defines the persistence contract for the ingestion pipeline.
type Store interface {
	EnsureIndex(ctx context.Context, dim int) error
	RecreateIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, passages []domain.Passage) error
	Delete(ctx context.Context, ids []string) error
	ReadManifest(ctx context.Context) (domain.IndexManifest, error)
	WriteManifest(ctx context.Context, m domain.IndexManifest) error
}
