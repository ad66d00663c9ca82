package port

import "redacted/internal/domain"

type Extractor interface {
	Extract(chunks []domain.Chunk, spans []domain.RedactionSpan) []domain.EntityMention
}
