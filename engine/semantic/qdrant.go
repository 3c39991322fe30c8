package semantic

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quillhq/quill/engine/domain"
)

// QdrantIndex implements Index against Qdrant. The configured collection name
// is an alias: Replace builds each corpus generation into a fresh staging
// collection and moves the alias in one atomic request, so queries resolve
// the prior complete generation or the new complete one, never a half-built
// collection. The superseded generation is dropped after the switch.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	initialized atomic.Bool
}

// NewQdrantIndex connects to Qdrant at the given gRPC address.
func NewQdrantIndex(addr, collection string) (*QdrantIndex, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error { return q.conn.Close() }

// AssumeInitialized marks a pre-existing collection as queryable, for
// processes that serve an index built by an earlier ingestion run.
func (q *QdrantIndex) AssumeInitialized() { q.initialized.Store(true) }

// Replace implements Index.
func (q *QdrantIndex) Replace(ctx context.Context, entries []Entry) error {
	version := ""
	for i, e := range entries {
		if i == 0 {
			version = e.ModelVersion
		} else if e.ModelVersion != version {
			return fmt.Errorf("%w: %q vs %q", domain.ErrMixedModelVersions, version, e.ModelVersion)
		}
	}

	staging := fmt.Sprintf("%s_gen_%d", q.collection, time.Now().UnixNano())

	dims := uint64(1)
	if len(entries) > 0 {
		dims = uint64(len(entries[0].Vector))
	}
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: staging,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dims,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", staging, err)
	}

	if len(entries) > 0 {
		points := make([]*pb.PointStruct, len(entries))
		for i, e := range entries {
			points[i] = &pb.PointStruct{
				Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: e.ID}},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}},
				},
				Payload: map[string]*pb.Value{
					"content":       {Kind: &pb.Value_StringValue{StringValue: e.Chunk.Text}},
					"doc_id":        {Kind: &pb.Value_StringValue{StringValue: e.Chunk.DocID}},
					"source":        {Kind: &pb.Value_StringValue{StringValue: e.Chunk.Source}},
					"chunk_index":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Chunk.Index)}},
					"chunk_offset":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Chunk.Offset)}},
					"chunk_end":     {Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Chunk.End)}},
					"model_version": {Kind: &pb.Value_StringValue{StringValue: e.ModelVersion}},
				},
			}
		}

		wait := true
		if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: staging,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			q.dropCollection(ctx, staging)
			return fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
		}
	}

	prev, err := q.aliasTarget(ctx)
	if err != nil {
		q.dropCollection(ctx, staging)
		return err
	}

	// Qdrant applies the actions of one ChangeAliases request atomically, so
	// the alias always resolves to a complete generation.
	var actions []*pb.AliasOperations
	if prev != "" {
		actions = append(actions, &pb.AliasOperations{
			Action: &pb.AliasOperations_DeleteAlias{DeleteAlias: &pb.DeleteAlias{AliasName: q.collection}},
		})
	}
	actions = append(actions, &pb.AliasOperations{
		Action: &pb.AliasOperations_CreateAlias{CreateAlias: &pb.CreateAlias{
			CollectionName: staging,
			AliasName:      q.collection,
		}},
	})
	if _, err := q.collections.UpdateAliases(ctx, &pb.ChangeAliases{Actions: actions}); err != nil {
		q.dropCollection(ctx, staging)
		return fmt.Errorf("semantic: switch alias %s to %s: %w", q.collection, staging, err)
	}

	if prev != "" {
		q.dropCollection(ctx, prev)
	}

	q.initialized.Store(true)
	return nil
}

// aliasTarget resolves the collection currently behind the index alias, or
// "" when no generation has been installed yet.
func (q *QdrantIndex) aliasTarget(ctx context.Context) (string, error) {
	resp, err := q.collections.ListAliases(ctx, &pb.ListAliasesRequest{})
	if err != nil {
		return "", fmt.Errorf("semantic: list aliases: %w", err)
	}
	for _, a := range resp.GetAliases() {
		if a.GetAliasName() == q.collection {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (q *QdrantIndex) dropCollection(ctx context.Context, name string) {
	_, _ = q.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
}

// Query implements Index.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int, minSimilarity float32) ([]Match, error) {
	if !q.initialized.Load() {
		return nil, domain.ErrNotInitialized
	}
	if k <= 0 {
		return []Match{}, nil
	}

	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		ScoreThreshold: &minSimilarity,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	matches := make([]Match, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		payload := r.GetPayload()
		matches[i] = Match{
			Similarity: r.GetScore(),
			Chunk: domain.Chunk{
				Text:   payload["content"].GetStringValue(),
				DocID:  payload["doc_id"].GetStringValue(),
				Source: payload["source"].GetStringValue(),
				Index:  int(payload["chunk_index"].GetIntegerValue()),
				Offset: int(payload["chunk_offset"].GetIntegerValue()),
				End:    int(payload["chunk_end"].GetIntegerValue()),
			},
		}
	}
	return matches, nil
}
