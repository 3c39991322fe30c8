// Package ingest runs the corpus through load, chunk and embed stages and
// installs the result in the vector index as one atomic replacement. A failed
// document is recorded and skipped; it never aborts the run.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillhq/quill/engine/corpus"
	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/engine/embed"
	"github.com/quillhq/quill/engine/semantic"
	"github.com/quillhq/quill/pkg/fn"
)

// EmbedBatchSize is the max chunks per embedding request.
const EmbedBatchSize = 100

// Deps holds the external dependencies of the pipeline.
type Deps struct {
	Loader   *corpus.Loader
	Chunker  *corpus.Chunker
	Embedder embed.Embedder
	Index    semantic.Index
	// Workers bounds concurrent per-document processing. Zero means one
	// worker per document.
	Workers int
	Logger  *slog.Logger
}

// Pipeline is the full-reindex ingestion pipeline.
type Pipeline struct {
	deps  Deps
	stage fn.Stage[domain.Document, []semantic.Entry]
	log   *slog.Logger
}

// New wires the per-document stage chain.
func New(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	chunk := fn.TracedStage("ingest.chunk", newChunkStage(deps.Chunker))
	embedStage := fn.TracedStage("ingest.embed", newEmbedStage(deps.Embedder))

	return &Pipeline{
		deps:  deps,
		stage: fn.Then(chunk, embedStage),
		log:   log,
	}
}

// Reindex loads every supported document under dir, runs each through the
// pipeline and replaces the index contents in one swap. Per-document failures
// land in the report; the run only fails when nothing could be indexed or the
// final swap fails.
func (p *Pipeline) Reindex(ctx context.Context, dir string) (domain.IngestReport, error) {
	started := time.Now()
	report := domain.IngestReport{StartedAt: started}

	docs, failures, err := p.deps.Loader.LoadDir(dir)
	if err != nil {
		return report, fmt.Errorf("ingest: load %s: %w", dir, err)
	}
	report.Failures = failures

	results := fn.ParMapResult(docs, p.deps.Workers, func(doc domain.Document) fn.Result[[]semantic.Entry] {
		return p.stage(ctx, doc)
	})

	var entries []semantic.Entry
	for i, res := range results {
		docEntries, err := res.Unwrap()
		if err != nil {
			p.log.Warn("document skipped", "doc", docs[i].Name, "err", err)
			report.Failures = append(report.Failures, domain.DocFailure{
				Document: docs[i].Name,
				Reason:   err.Error(),
			})
			continue
		}
		entries = append(entries, docEntries...)
		report.DocumentsIndexed++
	}

	if len(entries) == 0 {
		report.Duration = time.Since(started).String()
		return report, fmt.Errorf("ingest: no documents indexed from %s", dir)
	}

	if err := p.deps.Index.Replace(ctx, entries); err != nil {
		report.Duration = time.Since(started).String()
		return report, fmt.Errorf("ingest: install index: %w", err)
	}

	report.ChunksIndexed = len(entries)
	report.Duration = time.Since(started).String()
	p.log.Info("reindex complete",
		"documents", report.DocumentsIndexed,
		"chunks", report.ChunksIndexed,
		"failures", len(report.Failures),
		"duration", report.Duration,
	)
	return report, nil
}

func newChunkStage(chunker *corpus.Chunker) fn.Stage[domain.Document, docChunks] {
	return func(_ context.Context, doc domain.Document) fn.Result[docChunks] {
		chunks, err := chunker.Split(doc)
		if err != nil {
			return fn.Err[docChunks](err)
		}
		return fn.Ok(docChunks{doc: doc, chunks: chunks})
	}
}

func newEmbedStage(embedder embed.Embedder) fn.Stage[docChunks, []semantic.Entry] {
	return func(ctx context.Context, dc docChunks) fn.Result[[]semantic.Entry] {
		entries := make([]semantic.Entry, 0, len(dc.chunks))
		version := embedder.ModelVersion()

		for _, batch := range fn.Batch(dc.chunks, EmbedBatchSize) {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fn.Err[[]semantic.Entry](domain.NewIngestError(dc.doc.Name, err))
			}
			for i, c := range batch {
				entries = append(entries, semantic.Entry{
					ID:           entryID(dc.doc.ID, c.Index),
					Vector:       vectors[i],
					Chunk:        c,
					ModelVersion: version,
				})
			}
		}
		return fn.Ok(entries)
	}
}

type docChunks struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// entryID is deterministic per (document, chunk) so repeated runs produce
// stable point IDs in external stores.
func entryID(docID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", docID, index))).String()
}
