package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the engine error taxonomy.
var (
	// ErrNoText marks a document with no extractable text. The ingestion
	// run skips the document and records a per-document failure.
	ErrNoText = errors.New("document has no extractable text")

	// ErrUnsupportedFormat marks a document whose extension is not handled.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmbedding marks an embedding backend failure after retries.
	ErrEmbedding = errors.New("embedding backend unavailable")

	// ErrNotInitialized is returned when the vector index is queried
	// before any successful ingestion.
	ErrNotInitialized = errors.New("index not initialized")

	// ErrMixedModelVersions is returned when an index replacement mixes
	// entries embedded by different model versions.
	ErrMixedModelVersions = errors.New("entries mix embedding model versions")

	// ErrDimensionMismatch is returned when a query vector's dimension does
	// not match the indexed vectors, which indicates an embedder mismatch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLLM marks a completion-service failure or timeout. It is always
	// recovered locally into the fallback reply, never shown to the user.
	ErrLLM = errors.New("completion service failed")

	// Lead submission validation sentinels.
	ErrMissingField = errors.New("missing required field")
	ErrInvalidEmail = errors.New("invalid email address")
)

// IngestError wraps a sentinel with the document it concerns.
type IngestError struct {
	Document string
	Wrapped  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s", e.Document, e.Wrapped)
}

func (e *IngestError) Unwrap() error { return e.Wrapped }

// NewIngestError creates an IngestError for the given document.
func NewIngestError(document string, wrapped error) *IngestError {
	return &IngestError{Document: document, Wrapped: wrapped}
}

// SubmissionError wraps a validation sentinel with the offending field.
type SubmissionError struct {
	Field   string
	Wrapped error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission: %s: %s", e.Field, e.Wrapped)
}

func (e *SubmissionError) Unwrap() error { return e.Wrapped }
