package domain

import "fmt"

// PassageID returns the deterministic id of the n-th passage of the
// document. The scheme is shared by the chunker that mints ids and the
// ingestion pipeline that prunes surplus ids after a shorter re-ingest.
func PassageID(n int) string {
	return fmt.Sprintf("cv_chunk_%03d", n)
}

// Passage is a contiguous slice of the source document, the unit of
// retrieval. Immutable once indexed; superseded by re-ingestion under the
// same id scheme.
type Passage struct {
	ID           string
	Text         string
	Section      string
	SourceOffset int // character offset of the window start in the source text
	Vector       []float32
}

// ScoredPassage is a retrieved passage with its similarity score in [0,1].
type ScoredPassage struct {
	ID      string
	Text    string
	Section string
	Score   float64
}

// RetrievalResult is an ordered sequence of scored passages, descending by
// similarity, length bounded by top-k. Transient, recomputed per question.
type RetrievalResult []ScoredPassage
