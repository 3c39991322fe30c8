// Package main implements the Quill chat API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/quillhq/quill/engine/corpus"
	"github.com/quillhq/quill/engine/dialogue"
	"github.com/quillhq/quill/engine/embed"
	"github.com/quillhq/quill/engine/ingest"
	"github.com/quillhq/quill/engine/intent"
	"github.com/quillhq/quill/engine/leads"
	"github.com/quillhq/quill/engine/rag"
	"github.com/quillhq/quill/engine/semantic"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/metrics"
	"github.com/quillhq/quill/pkg/mid"
	"github.com/quillhq/quill/pkg/resilience"
)

// Config holds all environment-based configuration. Tuning parameters live
// in the YAML file at ConfigPath.
type Config struct {
	Port       string
	CORSOrigin string
	ConfigPath string
	CorpusDir  string

	NATSURL string

	// Index is "memory" or "qdrant".
	Index            string
	QdrantURL        string
	QdrantCollection string
	// QdrantReady marks the collection as already populated, so the server
	// answers queries without waiting for a reindex.
	QdrantReady bool

	LLMAPIKey  string
	LLMBaseURL string

	EmbedAPIKey  string
	EmbedBaseURL string
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8080"),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		ConfigPath:       envOr("CONFIG_PATH", "config.yaml"),
		CorpusDir:        envOr("CORPUS_DIR", "documents"),
		NATSURL:          envOr("NATS_URL", nats.DefaultURL),
		Index:            envOr("INDEX", "memory"),
		QdrantURL:        envOr("QDRANT_URL", "localhost:6334"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "quill"),
		QdrantReady:      os.Getenv("QDRANT_READY") == "true",
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMBaseURL:       os.Getenv("LLM_BASE_URL"),
		EmbedAPIKey:      envOr("EMBED_API_KEY", os.Getenv("LLM_API_KEY")),
		EmbedBaseURL:     os.Getenv("EMBED_BASE_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tuning, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	// --- Embedder ---
	var embedder embed.Embedder
	switch tuning.Embedder.Type {
	case "ollama":
		embedder = embed.NewOllama(cfg.EmbedBaseURL, tuning.Embedder.Model)
	default:
		embedder = embed.NewOpenAI(cfg.EmbedAPIKey, cfg.EmbedBaseURL, tuning.Embedder.Model)
	}
	embedder = embed.WithResilience(embedder, embed.DefaultResilientOpts())

	// --- Vector index ---
	var index semantic.Index
	if cfg.Index == "qdrant" {
		qdrant, err := semantic.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer qdrant.Close()
		if cfg.QdrantReady {
			qdrant.AssumeInitialized()
		}
		index = qdrant
	} else {
		index = semantic.NewMemoryIndex()
	}

	// --- NATS ---
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("quill-api"))
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	// --- Ingestion pipeline ---
	pipeline := ingest.New(ingest.Deps{
		Loader:   corpus.NewLoader(),
		Chunker:  corpus.NewChunker(tuning.Chunker.Size, tuning.Chunker.Overlap),
		Embedder: embedder,
		Index:    index,
		Workers:  4,
		Logger:   logger,
	})
	sub, err := ingest.StartSubscriber(nc, pipeline, cfg.CorpusDir)
	if err != nil {
		return fmt.Errorf("reindex subscriber: %w", err)
	}
	defer sub.Unsubscribe()

	// --- Dialogue ---
	classifier, err := intent.NewClassifier(tuning.Intent)
	if err != nil {
		return err
	}
	ragOpts := rag.Options{
		TopK:          tuning.Retrieval.TopK,
		ServicesTopK:  tuning.Retrieval.ServicesTopK,
		MinSimilarity: tuning.Retrieval.MinSimilarity,
		ContextBudget: tuning.LLM.ContextBudget,
		SearchTimeout: 5 * time.Second,
		Temperature:   tuning.LLM.Temperature,
		MaxTokens:     tuning.LLM.MaxTokens,
	}
	retriever := rag.NewRetriever(embedder, index, ragOpts, logger)
	completer := rag.NewOpenAICompleter(cfg.LLMAPIKey, cfg.LLMBaseURL, tuning.LLM.Model)
	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
	synthesizer := rag.NewSynthesizer(completer, breaker, ragOpts, logger)

	sessions := dialogue.NewSessionStore(dialogue.DefaultIdleTimeout)
	machine := dialogue.NewMachine(classifier, retriever, synthesizer, sessions, ragOpts, logger)

	leadSvc := leads.NewService(leads.NewNATSPublisher(nc), sessions, logger)

	// --- HTTP server ---
	registry := metrics.New()
	app := &app{
		machine:   machine,
		leads:     leadSvc,
		pipeline:  pipeline,
		corpusDir: cfg.CorpusDir,
		registry:  registry,
		logger:    logger,
	}

	handler := mid.Chain(app.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(registry),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("quill-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "index", cfg.Index)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
