package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/pkg/resilience"
)

// Canned answers for turns that never reach, or cannot reach, the model.
const (
	// InsufficientContextAnswer is returned when retrieval found nothing
	// relevant. No completion call is made in that case.
	InsufficientContextAnswer = "I couldn't find anything in the documentation that answers that. Could you rephrase the question, or ask about our services?"

	// FallbackAnswer is returned when the completion backend fails. Model
	// errors never reach the user as hard errors.
	FallbackAnswer = "I apologize, but I ran into a problem while processing your question. Please try again in a moment."
)

// Completer is the chat-completion backend.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Intent-keyed system prompts. Every prompt pins the model to the supplied
// context block.
var systemPrompts = map[domain.Intent]string{
	domain.IntentDocumentQuery: `You are a helpful assistant answering questions about the company and its documentation.
Answer using ONLY the provided context. Never invent details.
Keep answers short: a 2-3 line summary, then at most 6 concise bullet points when listing.
If the context does not contain the answer, say so plainly.`,

	domain.IntentServicesInquiry: `You are a helpful assistant describing the company's services and offerings.
Answer using ONLY the provided context. Never invent details.
Open with a one-line summary, then list each relevant service as a short bullet (name only, no marketing copy).`,
}

func systemPromptFor(it domain.Intent) string {
	if p, ok := systemPrompts[it]; ok {
		return p
	}
	return systemPrompts[domain.IntentDocumentQuery]
}

// Synthesizer produces a grounded answer from retrieved chunks.
type Synthesizer struct {
	completer Completer
	breaker   *resilience.Breaker
	opts      Options
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer. The breaker guards the completion
// backend; pass nil to call it unguarded.
func NewSynthesizer(completer Completer, breaker *resilience.Breaker, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, breaker: breaker, opts: opts, logger: logger}
}

// Answer produces the response text for one turn. It always returns non-empty
// text: empty context short-circuits to InsufficientContextAnswer without a
// model call, and completion failures degrade to FallbackAnswer. The bool
// reports whether the answer was synthesized from context, so callers can
// pick quick replies accordingly.
func (s *Synthesizer) Answer(ctx context.Context, it domain.Intent, question string, chunks []domain.ScoredChunk) (string, bool) {
	if len(chunks) == 0 {
		return InsufficientContextAnswer, false
	}

	user := buildUserPrompt(question, chunks, s.opts.ContextBudget)
	system := systemPromptFor(it)

	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = s.completer.Complete(ctx, system, user, s.opts.Temperature, s.opts.MaxTokens)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%w: empty completion", domain.ErrLLM)
		}
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		s.logger.Warn("completion failed, degrading to fallback", "intent", it, "err", err)
		return FallbackAnswer, false
	}
	return text, true
}

// buildUserPrompt assembles the context block and question. Chunks are added
// in rank order until the character budget is exhausted; the first chunk is
// truncated rather than dropped so oversized context never fails the turn.
func buildUserPrompt(question string, chunks []domain.ScoredChunk, budget int) string {
	var b strings.Builder
	b.WriteString("Context:\n")

	used := 0
	for _, c := range chunks {
		part := fmt.Sprintf("[%s #%d] %s\n", c.Source, c.Index, c.Text)
		if used+len(part) > budget {
			if used == 0 && budget > 0 {
				// Back the cut off to a rune boundary so the model never
				// receives a split rune.
				cut := budget
				for cut > 0 && !utf8.RuneStart(part[cut]) {
					cut--
				}
				b.WriteString(part[:cut])
			}
			break
		}
		b.WriteString(part)
		used += len(part)
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
