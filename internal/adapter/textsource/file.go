// Package textsource reads raw document text from disk. It stands in for
// the OCR/vision collaborator: upstream extraction drops UTF-8 text files
// into the intake directory and this adapter serves them by path.
package textsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"redacted/internal/port"
)

// estPageChars approximates one printed page of OCR output when the source
// carries no page markers.
const estPageChars = 3000

type FileSource struct{}

func NewFileSource() *FileSource {
	return &FileSource{}
}

// Fetch reads the file at ref. Page count comes from form-feed separators
// when the OCR output preserves them, otherwise from a character-count
// estimate. Either way the count is advisory.
func (s *FileSource) Fetch(ctx context.Context, ref string) (port.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return port.RawDocument{}, err
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return port.RawDocument{}, fmt.Errorf("failed to read document source: %w", err)
	}

	text := string(data)
	return port.RawDocument{
		Text:  text,
		Pages: estimatePages(text),
	}, nil
}

func estimatePages(text string) int {
	if text == "" {
		return 0
	}
	if ff := strings.Count(text, "\f"); ff > 0 {
		return ff + 1
	}
	return len(text)/estPageChars + 1
}
