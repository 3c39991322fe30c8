// Package corpus loads source documents and splits them into overlapping,
// bounded-length chunks for embedding and retrieval.
package corpus

import (
	"strings"
	"unicode"

	"github.com/quillhq/quill/engine/domain"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the target overlap between neighbouring chunks.
	DefaultOverlap = 200
)

// Chunker splits document text into chunks of at most Size characters,
// preferring paragraph and sentence boundaries near the limit and falling
// back to hard cuts. Every non-terminal chunk overlaps its successor by
// approximately Overlap characters. Offsets are rune offsets into the
// document text.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Invalid values fall back to defaults;
// the overlap is clamped below the chunk size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks a document. A document with no extractable text fails with
// domain.ErrNoText wrapped in an IngestError.
func (c *Chunker) Split(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, domain.NewIngestError(doc.Name, domain.ErrNoText)
	}

	runes := []rune(doc.Text)
	var chunks []domain.Chunk
	start := 0
	idx := 0

	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			DocID:  doc.ID,
			Source: doc.Name,
			Index:  idx,
			Text:   string(runes[start:end]),
			Offset: start,
			End:    end,
		})
		idx++

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// Ensure forward progress on tiny chunks.
			next = end
		}
		start = next
	}
	return chunks, nil
}

// breakPoint finds the best cut position in (start, limit]: the last
// paragraph break within the lookback window, else the last sentence end,
// else the hard limit.
func (c *Chunker) breakPoint(runes []rune, start, limit int) int {
	lookback := c.size / 5
	if lookback < 1 {
		lookback = 1
	}
	floor := limit - lookback
	if floor <= start {
		floor = start + 1
	}

	// Paragraph boundary: blank line.
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Sentence boundary: terminal punctuation followed by whitespace.
	for i := limit - 1; i >= floor; i-- {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?' || r == '\n') &&
			i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return limit
}
