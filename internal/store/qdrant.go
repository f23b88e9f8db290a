package store

import (
	"context"
	"fmt"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/agenthands/lexrag/internal/ingest"
)

const upsertBatchSize = 100

// defaultVectorSize sizes an empty collection when no vectors were indexed
// (text-embedding-3-small dimension).
const defaultVectorSize = 1536

// QdrantStore keeps vectors in a Qdrant collection over gRPC. Rebuild drops
// and recreates the collection.
type QdrantStore struct {
	client     *qd.Client
	collection string
}

func NewQdrantStore(host string, port int, apiKey, collection string) (*QdrantStore, error) {
	if host == "" {
		host = "localhost"
	}
	client, err := qd.NewClient(&qd.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantStore{client: client, collection: collection}, nil
}

func (s *QdrantStore) Rebuild(ctx context.Context, chunks []ingest.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", s.collection, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to drop collection '%s': %w", s.collection, err)
		}
	}
	// The collection is recreated even for an empty index, so a later
	// search answers "no hits" instead of reporting a missing store.
	size := defaultVectorSize
	if len(vectors) > 0 {
		size = len(vectors[0])
	}
	err = s.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(size),
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection '%s': %w", s.collection, err)
	}
	if len(vectors) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]*qd.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qd.PointStruct{
				Id:      qd.NewIDUUID(chunks[i].ID),
				Vectors: qd.NewVectors(vectors[i]...),
				Payload: qd.NewValueMap(map[string]any{
					"text":          chunks[i].Text,
					"document_name": chunks[i].Metadata.DocumentName,
					"source_path":   chunks[i].Metadata.SourcePath,
					"page_number":   int64(chunks[i].Metadata.PageNumber),
					"source_type":   chunks[i].Metadata.SourceType,
					"start_index":   int64(chunks[i].StartIndex),
				}),
			})
		}
		wait := true
		_, err := s.client.Upsert(ctx, &qd.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection '%s': %w", s.collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: collection '%s' is missing", ErrStoreNotFound, s.collection)
	}
	if topK <= 0 {
		return nil, nil
	}

	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qd.QueryPoints{
		CollectionName: s.collection,
		Query:          qd.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qd.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		hits = append(hits, Hit{
			Chunk:      decodeQdrantPoint(point),
			Similarity: point.Score,
		})
	}
	return hits, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection '%s': %w", s.collection, err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: collection '%s' is missing", ErrStoreNotFound, s.collection)
	}
	count, err := s.client.Count(ctx, &qd.CountPoints{CollectionName: s.collection})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func decodeQdrantPoint(point *qd.ScoredPoint) ingest.Chunk {
	payload := point.Payload
	chunk := ingest.Chunk{
		Text:       payload["text"].GetStringValue(),
		StartIndex: int(payload["start_index"].GetIntegerValue()),
		Metadata: ingest.Metadata{
			DocumentName: payload["document_name"].GetStringValue(),
			SourcePath:   payload["source_path"].GetStringValue(),
			PageNumber:   int(payload["page_number"].GetIntegerValue()),
			SourceType:   payload["source_type"].GetStringValue(),
		},
	}
	if id := point.Id.GetUuid(); id != "" {
		chunk.ID = id
	}
	return chunk
}
