package passage

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/anoguera/cvassist/internal/db"
	"github.com/anoguera/cvassist/internal/domain"
)

// buildHashFields flattens a Passage into hash fields for HSET.
func buildHashFields(p *domain.Passage) map[string]string {
	return map[string]string{
		"__text":   p.Text,
		"__vector": vectorToBytes(p.Vector),
		"section":  p.Section,
		"offset":   strconv.Itoa(p.SourceOffset),
	}
}

// parseEntries converts a KNN search result into scored passages.
func parseEntries(sr *db.SearchResult, keyPrefix string) domain.RetrievalResult {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	out := make(domain.RetrievalResult, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, domain.ScoredPassage{
			ID:      strings.TrimPrefix(e.Key, keyPrefix),
			Text:    e.Fields["__text"],
			Section: e.Fields["section"],
			Score:   e.Score,
		})
	}
	return out
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
