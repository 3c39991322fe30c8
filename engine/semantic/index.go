// Package semantic stores embedded chunks and answers nearest-neighbour
// queries by cosine similarity. The in-memory index is the reference
// implementation; a Qdrant-backed index is available for deployments with an
// external vector database.
package semantic

import (
	"context"

	"github.com/quillhq/quill/engine/domain"
)

// Entry is one indexed (vector, chunk, provenance) triple. Every entry in an
// index snapshot must carry the same embedding model version.
type Entry struct {
	ID           string
	Vector       []float32
	Chunk        domain.Chunk
	ModelVersion string
}

// Match is an entry returned from a query with its cosine similarity.
type Match struct {
	Chunk      domain.Chunk
	Similarity float32
}

// Index stores embedded chunks and answers similarity queries.
type Index interface {
	// Replace swaps the full index contents for this run. Readers see the
	// prior complete contents or the new complete contents, never a
	// half-built state. Mixing embedding model versions is rejected.
	Replace(ctx context.Context, entries []Entry) error

	// Query returns at most k matches with similarity >= minSimilarity,
	// ordered by descending similarity. Querying before the first
	// successful Replace fails with domain.ErrNotInitialized; an
	// initialized index with no matching entries returns an empty slice.
	Query(ctx context.Context, vector []float32, k int, minSimilarity float32) ([]Match, error)
}
