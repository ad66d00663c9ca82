// Package chunker splits raw document text into bounded, sentence-respecting
// chunks. Chunk offsets address the original string exactly, because every
// later citation resolves against them.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"
	"unicode/utf8"

	"redacted/internal/domain"
)

type SentenceChunker struct {
	budget        int
	chunksPerPage int
}

// NewSentenceChunker creates a chunker with a character budget per chunk and
// a chunks-per-page ratio used for page estimation.
func NewSentenceChunker(budget, chunksPerPage int) *SentenceChunker {
	if chunksPerPage < 1 {
		chunksPerPage = 1
	}
	return &SentenceChunker{
		budget:        budget,
		chunksPerPage: chunksPerPage,
	}
}

// Chunk partitions text into ordered chunks covering [0, len(text)) with no
// gaps and no overlaps. Sentences are accumulated greedily under the budget;
// a single sentence longer than the budget becomes its own oversized chunk.
// The result is deterministic for identical input and budget.
func (c *SentenceChunker) Chunk(docID, text string) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, nil
	}

	bounds := sentenceBounds(text)

	var chunks []domain.Chunk
	start := 0
	end := 0
	flush := func() {
		if end > start {
			chunks = append(chunks, c.newChunk(docID, len(chunks), start, end, text))
			start = end
		}
	}

	for _, b := range bounds {
		if b-start > c.budget && end > start {
			flush()
		}
		end = b
	}
	flush()

	return chunks, nil
}

func (c *SentenceChunker) newChunk(docID string, index, start, end int, text string) domain.Chunk {
	return domain.Chunk{
		ID:    chunkID(docID, start, end),
		DocID: docID,
		Index: index,
		Page:  index/c.chunksPerPage + 1,
		Start: start,
		End:   end,
		Text:  text[start:end],
	}
}

// sentenceBounds returns the end offsets of sentence-like units. A boundary
// follows terminal punctuation plus the whitespace run after it, so the
// units concatenate back to the full text byte for byte. The final unit
// always ends at len(text).
func sentenceBounds(text string) []int {
	var bounds []int
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// consume the whitespace run following the terminator
		j := i
		for j < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j > i {
			bounds = append(bounds, j)
			i = j
		}
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != len(text) {
		bounds = append(bounds, len(text))
	}
	return bounds
}

func chunkID(docID string, start, end int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d-%d", docID, start, end)))
	return hex.EncodeToString(sum[:8])
}
