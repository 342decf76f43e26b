// Package extract reads a source document and produces a single
// normalized text blob.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/anoguera/cvassist/internal/domain"
)

// MinTextLen is the minimum number of characters for extraction to count
// as usable. Anything below this is almost certainly a scanned document
// with no text layer.
const MinTextLen = 40

// Extract reads the document at path and returns its normalized text.
// PDF files are read page by page; everything else is treated as UTF-8
// text. There are no partial results: either the text is usable or the
// call fails with domain.ErrNoExtractableText.
func Extract(path string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(path)
	default:
		text, err = extractPlain(path)
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if len(text) < MinTextLen {
		return "", fmt.Errorf("document %s yielded %d characters (scanned image?): %w",
			path, len(text), domain.ErrNoExtractableText)
	}

	return text, nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// Pages without a text layer are skipped; the length check
			// in Extract catches fully scanned documents.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", path, err)
	}
	return string(data), nil
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	return strings.TrimSpace(text)
}
