// Command ingest runs a one-shot full reindex of a document directory into
// Qdrant, or asks a running API server to reindex by publishing the trigger
// over NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/quillhq/quill/engine/corpus"
	"github.com/quillhq/quill/engine/embed"
	"github.com/quillhq/quill/engine/ingest"
	"github.com/quillhq/quill/engine/semantic"
	"github.com/quillhq/quill/pkg/config"
	"github.com/quillhq/quill/pkg/natsutil"
)

func main() {
	var (
		dir        = flag.String("dir", "documents", "document directory to index")
		configPath = flag.String("config", "config.yaml", "tuning config path")
		qdrantAddr = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "quill", "Qdrant collection name")
		workers    = flag.Int("workers", 4, "concurrent documents")
		trigger    = flag.Bool("trigger", false, "publish a reindex request over NATS instead of indexing locally")
		natsURL    = flag.String("nats", nats.DefaultURL, "NATS URL (trigger mode)")
	)
	flag.Parse()
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, *dir, *configPath, *qdrantAddr, *collection, *workers, *trigger, *natsURL); err != nil {
		log.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, dir, configPath, qdrantAddr, collection string, workers int, trigger bool, natsURL string) error {
	if trigger {
		nc, err := nats.Connect(natsURL, nats.Name("quill-ingest"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		if err := natsutil.Publish(ctx, nc, ingest.ReindexSubject, ingest.ReindexRequest{Dir: dir}); err != nil {
			return fmt.Errorf("publish trigger: %w", err)
		}
		log.Info("reindex requested", "dir", dir)
		return nil
	}

	tuning, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var embedder embed.Embedder
	switch tuning.Embedder.Type {
	case "ollama":
		embedder = embed.NewOllama(os.Getenv("EMBED_BASE_URL"), tuning.Embedder.Model)
	default:
		embedder = embed.NewOpenAI(os.Getenv("EMBED_API_KEY"), os.Getenv("EMBED_BASE_URL"), tuning.Embedder.Model)
	}
	embedder = embed.WithResilience(embedder, embed.DefaultResilientOpts())

	index, err := semantic.NewQdrantIndex(qdrantAddr, collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()

	pipeline := ingest.New(ingest.Deps{
		Loader:   corpus.NewLoader(),
		Chunker:  corpus.NewChunker(tuning.Chunker.Size, tuning.Chunker.Overlap),
		Embedder: embedder,
		Index:    index,
		Workers:  workers,
		Logger:   log,
	})

	report, err := pipeline.Reindex(ctx, dir)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(report)
}
