// Package rag answers document questions in two steps: a Retriever embeds the
// question and pulls the most similar chunks from the vector index, and a
// Synthesizer turns those chunks into a grounded answer with one low
// temperature chat-completion call.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/engine/embed"
	"github.com/quillhq/quill/engine/semantic"
)

// Options tunes retrieval depth and answer synthesis.
type Options struct {
	// TopK is the retrieval depth for ordinary document queries.
	TopK int
	// ServicesTopK is the deeper retrieval used for services inquiries,
	// which tend to span more of the corpus.
	ServicesTopK int
	// MinSimilarity drops chunks below this cosine similarity.
	MinSimilarity float32
	// ContextBudget caps the assembled context block, in characters.
	ContextBudget int
	// SearchTimeout bounds the index query.
	SearchTimeout time.Duration
	// Temperature for the completion call. Kept low so answers stay
	// anchored to the supplied context.
	Temperature float32
	MaxTokens   int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          4,
		ServicesTopK:  8,
		MinSimilarity: 0.2,
		ContextBudget: 6000,
		SearchTimeout: 5 * time.Second,
		Temperature:   0.0,
		MaxTokens:     2048,
	}
}

// DepthFor returns the retrieval depth for an intent.
func (o Options) DepthFor(it domain.Intent) int {
	if it == domain.IntentServicesInquiry {
		return o.ServicesTopK
	}
	return o.TopK
}

// Retriever embeds a question and finds the most similar indexed chunks.
type Retriever struct {
	embedder embed.Embedder
	index    semantic.Index
	opts     Options
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder embed.Embedder, index semantic.Index, opts Options, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, opts: opts, logger: logger}
}

// Retrieve returns up to k chunks ranked by similarity. An empty result is
// not an error; querying an uninitialized index surfaces
// domain.ErrNotInitialized to the caller.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embed question: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	defer cancel()

	matches, err := r.index.Query(searchCtx, vector, k, r.opts.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("rag: index query: %w", err)
	}
	r.logger.Debug("retrieval done", "question_len", len(question), "k", k, "results", len(matches))

	chunks := make([]domain.ScoredChunk, len(matches))
	for i, m := range matches {
		chunks[i] = domain.ScoredChunk{Chunk: m.Chunk, Score: m.Similarity}
	}
	return chunks, nil
}
