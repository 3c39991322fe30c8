package rag

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quillhq/quill/engine/domain"
)

// OpenAICompleter calls an OpenAI-compatible chat-completion API. Setting a
// base URL covers Groq-style gateways that speak the same protocol.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer for the given model. baseURL is
// optional; empty means the default OpenAI endpoint.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: model}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLM, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrLLM)
	}
	return resp.Choices[0].Message.Content, nil
}
