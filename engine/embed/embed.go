// Package embed maps text to fixed-dimension vectors via an external
// embedding service. Backends are deterministic for a given model version;
// failures are retried with backoff before surfacing as domain.ErrEmbedding.
package embed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/pkg/fn"
)

// Embedder converts text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// ModelVersion identifies the embedding model. Vectors from different
	// versions must never be compared against each other.
	ModelVersion() string
}

// ResilientOpts configures the retry/pacing wrapper.
type ResilientOpts struct {
	Retry       fn.RetryOpts
	CallTimeout time.Duration
	// RequestsPerSecond paces calls against the backend; 0 disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// DefaultResilientOpts returns the standard wrapper configuration.
func DefaultResilientOpts() ResilientOpts {
	return ResilientOpts{
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Jitter:      true,
		},
		CallTimeout:       30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// resilient decorates an Embedder with rate pacing, per-call timeouts, and
// bounded retry. Exhausted retries surface as domain.ErrEmbedding.
type resilient struct {
	inner   Embedder
	opts    ResilientOpts
	limiter *rate.Limiter
}

// WithResilience wraps an Embedder per opts.
func WithResilience(inner Embedder, opts ResilientOpts) Embedder {
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &resilient{inner: inner, opts: opts, limiter: limiter}
}

func (r *resilient) ModelVersion() string { return r.inner.ModelVersion() }

func (r *resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := r.call(ctx, func(ctx context.Context) ([][]float32, error) {
		vec, err := r.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{vec}, nil
	})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (r *resilient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return r.call(ctx, func(ctx context.Context) ([][]float32, error) {
		return r.inner.EmbedBatch(ctx, texts)
	})
}

func (r *resilient) call(ctx context.Context, f func(context.Context) ([][]float32, error)) ([][]float32, error) {
	result := fn.Retry(ctx, r.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return fn.Err[[][]float32](err)
			}
		}
		callCtx := ctx
		if r.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
			defer cancel()
		}
		return fn.FromPair(f(callCtx))
	})
	vecs, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	return vecs, nil
}
