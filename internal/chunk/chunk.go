// Package chunk splits extracted document text into overlapping
// fixed-size passages.
package chunk

import (
	"fmt"

	"github.com/anoguera/cvassist/internal/domain"
)

// Section tag applied to every passage of the résumé document.
const Section = "cv"

// Chunker produces character-window passages with a fixed overlap.
// Boundaries are character-based, not sentence-aware: simplicity wins over
// semantic purity, and the overlap keeps context from being cut mid-fact.
type Chunker struct {
	maxChars int
	overlap  int
}

// New validates the window parameters. overlap >= maxChars would never
// advance the window, so it is rejected up front.
func New(maxChars, overlap int) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max_chars must be positive, got %d: %w", maxChars, domain.ErrInvalidConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d: %w", overlap, domain.ErrInvalidConfig)
	}
	if overlap >= maxChars {
		return nil, fmt.Errorf("overlap (%d) must be smaller than max_chars (%d): %w",
			overlap, maxChars, domain.ErrInvalidConfig)
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}, nil
}

// Split walks text in windows of maxChars characters; each window starts
// maxChars-overlap after the previous one, so consecutive passages share
// exactly overlap trailing/leading characters. Windows are counted in
// runes, never bytes, so multi-byte characters are never split and every
// passage is valid UTF-8. The final passage may be shorter. Empty text
// yields an empty slice.
func (c *Chunker) Split(text string) []domain.Passage {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.maxChars - c.overlap
	passages := make([]domain.Passage, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}

		passages = append(passages, domain.Passage{
			ID:           domain.PassageID(len(passages)),
			Text:         string(runes[start:end]),
			Section:      Section,
			SourceOffset: start,
		})

		if end == len(runes) {
			break
		}
	}

	return passages
}
