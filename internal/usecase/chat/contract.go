package chat

import (
	"context"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/prompt"
)

// Embedder vectorizes the question and identifies the model that
// produced the vector. The model name is checked against the index
// manifest before any query runs.
type Embedder interface {
	domain.Embedder
	Model() string
}

// Store defines the retrieval contract against the vector index.
type Store interface {
	Query(ctx context.Context, vector []float32, topK int) (domain.RetrievalResult, error)
	ReadManifest(ctx context.Context) (domain.IndexManifest, error)
}

// Generator produces the final answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}
