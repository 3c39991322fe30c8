package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/pkg/fn"
)

// flaky fails a fixed number of calls before succeeding.
type flaky struct {
	failures int
	calls    int
}

func (f *flaky) ModelVersion() string { return "fake-v1" }

func (f *flaky) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *flaky) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func fastOpts(attempts int) ResilientOpts {
	return ResilientOpts{
		Retry: fn.RetryOpts{
			MaxAttempts: attempts,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
		CallTimeout: time.Second,
	}
}

func TestWithResilience_RetriesThenSucceeds(t *testing.T) {
	backend := &flaky{failures: 2}
	e := WithResilience(backend, fastOpts(3))

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("unexpected vector: %v", vec)
	}
	if backend.calls != 3 {
		t.Errorf("expected 3 calls, got %d", backend.calls)
	}
}

func TestWithResilience_ExhaustedRetriesSurfaceEmbeddingError(t *testing.T) {
	backend := &flaky{failures: 10}
	e := WithResilience(backend, fastOpts(3))

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if backend.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", backend.calls)
	}
}

func TestWithResilience_PreservesModelVersion(t *testing.T) {
	e := WithResilience(&flaky{}, fastOpts(1))
	if e.ModelVersion() != "fake-v1" {
		t.Errorf("unexpected model version %q", e.ModelVersion())
	}
}
