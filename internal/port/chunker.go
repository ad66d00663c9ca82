package port

import "redacted/internal/domain"

type Chunker interface {
	Chunk(docID, text string) ([]domain.Chunk, error)
}
