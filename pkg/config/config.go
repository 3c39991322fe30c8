// Package config loads the tuning configuration from YAML. Connection
// secrets (API keys, broker URLs) stay in environment variables; this file
// carries the knobs that change between deployments: chunking, retrieval
// depth, model selection and the intent rule lists.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quillhq/quill/engine/intent"
)

// ChunkerConfig configures how documents are split.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig tunes vector search.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`
	ServicesTopK  int     `yaml:"services_top_k"`
	MinSimilarity float32 `yaml:"min_similarity"`
}

// LLMConfig selects the completion model.
type LLMConfig struct {
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	ContextBudget int     `yaml:"context_budget"`
}

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	// Type is "openai" or "ollama".
	Type  string `yaml:"type"`
	Model string `yaml:"model"`
}

// Config is the root tuning configuration.
type Config struct {
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Intent    intent.Rules    `yaml:"intent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chunker:   ChunkerConfig{Size: 1000, Overlap: 200},
		Retrieval: RetrievalConfig{TopK: 4, ServicesTopK: 8, MinSimilarity: 0.2},
		LLM:       LLMConfig{Model: "llama-3.1-8b-instant", Temperature: 0.0, MaxTokens: 2048, ContextBudget: 6000},
		Embedder:  EmbedderConfig{Type: "openai", Model: "text-embedding-3-small"},
		Intent:    intent.DefaultRules(),
	}
}

// Load reads the config at path. A missing file returns defaults; a present
// file overrides only the sections it sets.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker = def.Chunker
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.ServicesTopK <= 0 {
		cfg.Retrieval.ServicesTopK = def.Retrieval.ServicesTopK
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.LLM.ContextBudget <= 0 {
		cfg.LLM.ContextBudget = def.LLM.ContextBudget
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder = def.Embedder
	}
	if len(cfg.Intent.GreetingPatterns) == 0 {
		cfg.Intent = def.Intent
	}
}
