package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/engine/semantic"
	"github.com/quillhq/quill/pkg/resilience"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fakeEmbedder) ModelVersion() string { return "fake/v1" }

type fakeIndex struct {
	matches []semantic.Match
	err     error
	gotK    int
}

func (f *fakeIndex) Replace(ctx context.Context, entries []semantic.Entry) error { return nil }

func (f *fakeIndex) Query(ctx context.Context, vector []float32, k int, min float32) ([]semantic.Match, error) {
	f.gotK = k
	return f.matches, f.err
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	f.calls++
	return f.reply, f.err
}

func scored(source, text string, score float32) domain.ScoredChunk {
	return domain.ScoredChunk{Chunk: domain.Chunk{Source: source, Text: text}, Score: score}
}

func TestRetrieve(t *testing.T) {
	idx := &fakeIndex{matches: []semantic.Match{
		{Chunk: domain.Chunk{Source: "handbook.md", Text: "refund policy"}, Similarity: 0.91},
		{Chunk: domain.Chunk{Source: "faq.md", Text: "shipping times"}, Similarity: 0.55},
	}}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, idx, DefaultOptions(), nil)

	chunks, err := r.Retrieve(context.Background(), "what is the refund policy", 4)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if idx.gotK != 4 {
		t.Errorf("k = %d, want 4", idx.gotK)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Score != 0.91 || chunks[0].Source != "handbook.md" {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
}

func TestRetrieveNotInitialized(t *testing.T) {
	idx := &fakeIndex{err: domain.ErrNotInitialized}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, idx, DefaultOptions(), nil)

	_, err := r.Retrieve(context.Background(), "anything", 4)
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: domain.ErrEmbedding}, &fakeIndex{}, DefaultOptions(), nil)
	_, err := r.Retrieve(context.Background(), "anything", 4)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestDepthFor(t *testing.T) {
	opts := DefaultOptions()
	if got := opts.DepthFor(domain.IntentServicesInquiry); got != opts.ServicesTopK {
		t.Errorf("services depth = %d, want %d", got, opts.ServicesTopK)
	}
	if got := opts.DepthFor(domain.IntentDocumentQuery); got != opts.TopK {
		t.Errorf("query depth = %d, want %d", got, opts.TopK)
	}
}

func TestAnswerEmptyContextSkipsModel(t *testing.T) {
	comp := &fakeCompleter{reply: "should not be used"}
	s := NewSynthesizer(comp, nil, DefaultOptions(), nil)

	text, grounded := s.Answer(context.Background(), domain.IntentDocumentQuery, "q", nil)
	if text != InsufficientContextAnswer {
		t.Errorf("got %q", text)
	}
	if grounded {
		t.Error("empty context must not count as grounded")
	}
	if comp.calls != 0 {
		t.Errorf("completer called %d times, want 0", comp.calls)
	}
}

func TestAnswerGrounded(t *testing.T) {
	comp := &fakeCompleter{reply: "The refund window is 30 days."}
	s := NewSynthesizer(comp, nil, DefaultOptions(), nil)

	text, grounded := s.Answer(context.Background(), domain.IntentDocumentQuery, "refund?",
		[]domain.ScoredChunk{scored("handbook.md", "refunds within 30 days", 0.9)})
	if !grounded {
		t.Fatal("expected grounded answer")
	}
	if text != comp.reply {
		t.Errorf("got %q", text)
	}
}

func TestAnswerFallbackOnModelError(t *testing.T) {
	comp := &fakeCompleter{err: domain.ErrLLM}
	s := NewSynthesizer(comp, nil, DefaultOptions(), nil)

	text, grounded := s.Answer(context.Background(), domain.IntentDocumentQuery, "q",
		[]domain.ScoredChunk{scored("a", "b", 0.9)})
	if text != FallbackAnswer {
		t.Errorf("got %q, want fallback", text)
	}
	if grounded {
		t.Error("fallback must not count as grounded")
	}
}

func TestAnswerBreakerShortCircuits(t *testing.T) {
	comp := &fakeCompleter{err: domain.ErrLLM}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	s := NewSynthesizer(comp, breaker, DefaultOptions(), nil)
	chunks := []domain.ScoredChunk{scored("a", "b", 0.9)}

	for i := 0; i < 5; i++ {
		if text, _ := s.Answer(context.Background(), domain.IntentDocumentQuery, "q", chunks); text != FallbackAnswer {
			t.Fatalf("turn %d: got %q, want fallback", i, text)
		}
	}
	// Two failures trip the breaker; the remaining turns must not reach
	// the backend.
	if comp.calls != 2 {
		t.Errorf("completer called %d times, want 2", comp.calls)
	}
}

func TestBuildUserPromptBudget(t *testing.T) {
	chunks := []domain.ScoredChunk{
		scored("a.md", strings.Repeat("x", 400), 0.9),
		scored("b.md", strings.Repeat("y", 400), 0.8),
		scored("c.md", strings.Repeat("z", 400), 0.7),
	}
	prompt := buildUserPrompt("the question", chunks, 900)

	if !strings.Contains(prompt, "xxx") || !strings.Contains(prompt, "yyy") {
		t.Error("budget should admit the first two chunks")
	}
	if strings.Contains(prompt, "zzz") {
		t.Error("third chunk should not fit the budget")
	}
	if !strings.Contains(prompt, "the question") {
		t.Error("question missing from prompt")
	}

	// A single oversized chunk is truncated, not dropped.
	huge := []domain.ScoredChunk{scored("big.md", strings.Repeat("w", 10000), 0.9)}
	prompt = buildUserPrompt("q", huge, 500)
	if !strings.Contains(prompt, "www") {
		t.Error("oversized chunk should be truncated into the prompt")
	}
	if len(prompt) > 600 {
		t.Errorf("prompt length %d exceeds budget headroom", len(prompt))
	}
}

func TestBuildUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte text plus a budget landing mid-rune must still yield valid
	// UTF-8.
	text := strings.Repeat("日本語のドキュメント。", 200)
	chunks := []domain.ScoredChunk{scored("docs.md", text, 0.9)}

	for budget := 40; budget < 60; budget++ {
		prompt := buildUserPrompt("質問", chunks, budget)
		if !utf8.ValidString(prompt) {
			t.Fatalf("budget %d produced invalid UTF-8: %q", budget, prompt)
		}
	}
}
