package ingest

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/quillhq/quill/pkg/natsutil"
)

// NATS subjects for ingestion control.
const (
	// ReindexSubject triggers a full reindex of the corpus directory.
	ReindexSubject = "corpus.reindex"
	// ReindexDoneSubject carries the report of a completed run.
	ReindexDoneSubject = "corpus.reindex.done"
)

// ReindexRequest asks for a full reindex. Dir is optional and falls back to
// the subscriber's default corpus directory.
type ReindexRequest struct {
	Dir string `json:"dir,omitempty"`
}

// StartSubscriber listens for reindex requests and runs the pipeline for
// each. The completed report is published for observers; failures are logged
// and reported the same way.
func StartSubscriber(nc *nats.Conn, p *Pipeline, defaultDir string) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, ReindexSubject, func(ctx context.Context, req ReindexRequest) {
		dir := req.Dir
		if dir == "" {
			dir = defaultDir
		}
		p.log.Info("reindex requested", "dir", dir)

		report, err := p.Reindex(ctx, dir)
		if err != nil {
			p.log.Error("reindex failed", "dir", dir, "err", err)
		}
		if pubErr := natsutil.Publish(ctx, nc, ReindexDoneSubject, report); pubErr != nil {
			p.log.Error("reindex report publish failed", "err", pubErr)
		}
	})
}
