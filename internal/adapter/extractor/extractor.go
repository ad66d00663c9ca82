// Package extractor runs pattern recognizers over chunk text and emits
// entity mentions. Every mention is tested against the effective redacted
// regions before emission: redacted text never leaves this package.
package extractor

import (
	"fmt"

	"redacted/internal/adapter/analyzer"
	"redacted/internal/adapter/redaction"
	"redacted/internal/domain"
)

type PatternExtractor struct {
	recognizers []Recognizer
}

func NewPatternExtractor(recognizers ...Recognizer) *PatternExtractor {
	if len(recognizers) == 0 {
		recognizers = DefaultRecognizers()
	}
	return &PatternExtractor{recognizers: recognizers}
}

// Extract runs every recognizer over every chunk, translating chunk-local
// match offsets to absolute document offsets and applying redaction
// suppression against the union of spans:
//
//   - a match wholly inside a redacted region is dropped (a block of marker
//     glyphs is never decomposed into names or dates);
//   - an identity match partially overlapping a region becomes a placeholder
//     mention with IsRedacted set and no underlying characters;
//   - type-only matches (dates, amounts) pass through on partial overlap.
func (e *PatternExtractor) Extract(chunks []domain.Chunk, spans []domain.RedactionSpan) []domain.EntityMention {
	redacted := redaction.Union(spans)

	var mentions []domain.EntityMention
	for _, chunk := range chunks {
		for _, rec := range e.recognizers {
			for _, m := range rec.Scan(chunk.Text) {
				start := chunk.Start + m.Start
				end := chunk.Start + m.End

				if redaction.Covered(redacted, start, end) {
					continue
				}

				mention := domain.EntityMention{
					Text:    analyzer.DisplayName(m.Text),
					Type:    rec.Type,
					DocID:   chunk.DocID,
					ChunkID: chunk.ID,
					Start:   start,
					End:     end,
				}

				if !rec.TypeOnly && redaction.Overlapping(redacted, start, end) {
					mention.Text = Placeholder(rec.Type)
					mention.IsRedacted = true
				}

				mentions = append(mentions, mention)
			}
		}
	}
	return mentions
}

// Placeholder is the stored stand-in for a redacted mention. It carries the
// entity type only, never characters from the covered range.
func Placeholder(t domain.EntityType) string {
	return fmt.Sprintf("[REDACTED %s]", t)
}
