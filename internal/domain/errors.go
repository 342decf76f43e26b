package domain

import "errors"

var (
	// ErrNoExtractableText signals a document with no usable text layer.
	ErrNoExtractableText = errors.New("no extractable text")
	// ErrInvalidConfig signals invalid chunking or runtime parameters.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrGenerationFailed signals a language model failure.
	ErrGenerationFailed = errors.New("answer generation failed")
	// ErrModelVersionMismatch signals that the configured embedding model
	// differs from the one recorded in the index manifest at ingestion time.
	ErrModelVersionMismatch = errors.New("embedding model version mismatch")
	// ErrManifestNotFound signals a collection that was never ingested.
	ErrManifestNotFound = errors.New("index manifest not found")
)

// UpstreamStatusError carries the HTTP status of a failed hosted-provider
// call so callers can tell permanent rejections (auth, malformed input)
// from transient overload.
type UpstreamStatusError struct {
	Status int
	Err    error
}

func (e *UpstreamStatusError) Error() string { return e.Err.Error() }
func (e *UpstreamStatusError) Unwrap() error { return e.Err }

// RetryableUpstream reports whether an upstream failure may heal on a
// later attempt: network-level failures (no status), 429 and 5xx.
// Any other 4xx is a permanent rejection and must not be retried.
func RetryableUpstream(err error) bool {
	var se *UpstreamStatusError
	if !errors.As(err, &se) {
		return true
	}
	return se.Status == 0 || se.Status == 429 || se.Status >= 500
}
