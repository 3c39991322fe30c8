package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/quillhq/quill/engine/domain"
)

// snapshot is an immutable, fully built index generation. Vectors are
// L2-normalized at build time so cosine similarity reduces to a dot product.
type snapshot struct {
	entries []Entry
	vectors [][]float32
	version string
	dims    int
}

// MemoryIndex is a brute-force cosine-similarity index. Replace builds a new
// snapshot and swaps one pointer, so any number of concurrent queries run
// against a complete generation without locking.
type MemoryIndex struct {
	current atomic.Pointer[snapshot]
}

// NewMemoryIndex creates an uninitialized in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Replace implements Index.
func (m *MemoryIndex) Replace(_ context.Context, entries []Entry) error {
	snap := &snapshot{
		entries: make([]Entry, len(entries)),
		vectors: make([][]float32, len(entries)),
	}
	for i, e := range entries {
		if i == 0 {
			snap.version = e.ModelVersion
			snap.dims = len(e.Vector)
		} else if e.ModelVersion != snap.version {
			return fmt.Errorf("%w: %q vs %q", domain.ErrMixedModelVersions, snap.version, e.ModelVersion)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("semantic: entry %s has an empty vector", e.ID)
		}
		if len(e.Vector) != snap.dims {
			return fmt.Errorf("%w: entry %s has %d dims, snapshot has %d", domain.ErrDimensionMismatch, e.ID, len(e.Vector), snap.dims)
		}
		snap.entries[i] = e
		snap.vectors[i] = normalize(e.Vector)
	}
	m.current.Store(snap)
	return nil
}

// Query implements Index.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, k int, minSimilarity float32) ([]Match, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, domain.ErrNotInitialized
	}
	if k <= 0 || len(snap.entries) == 0 {
		return []Match{}, nil
	}
	if len(vector) != snap.dims {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", domain.ErrDimensionMismatch, len(vector), snap.dims)
	}

	q := normalize(vector)
	matches := make([]Match, 0, len(snap.entries))
	for i, v := range snap.vectors {
		sim := dot(q, v)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{Chunk: snap.entries[i].Chunk, Similarity: sim})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Size returns the number of entries in the current snapshot, or 0 when
// uninitialized.
func (m *MemoryIndex) Size() int {
	snap := m.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.entries)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot assumes equal lengths; Replace and Query enforce matching dims.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
