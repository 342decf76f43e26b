package domain

import "time"

// IndexManifest records which embedding model produced the indexed
// vectors. Written at ingestion time, validated before serving queries:
// vectors from different model versions must never share a collection.
type IndexManifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	PassageCount   int       `json:"passage_count"`
	IngestedAt     time.Time `json:"ingested_at"`
}
