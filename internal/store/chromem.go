package store

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/agenthands/lexrag/internal/ingest"
)

// ChromemStore keeps vectors in a chromem-go persistent database, one
// directory on disk. Rebuild wipes the directory and recreates it.
type ChromemStore struct {
	path       string
	collection string

	mu  sync.Mutex
	col *chromem.Collection
}

func NewChromemStore(path, collection string) *ChromemStore {
	return &ChromemStore{path: path, collection: collection}
}

// open lazily attaches to the on-disk database. When create is false and the
// directory is missing, the index was never built and ErrStoreNotFound is
// returned.
func (s *ChromemStore) open(create bool) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col != nil {
		return s.col, nil
	}

	if !create {
		if _, err := os.Stat(s.path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory '%s' is missing", ErrStoreNotFound, s.path)
		}
	}

	db, err := chromem.NewPersistentDB(s.path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector db at '%s': %w", s.path, err)
	}
	col, err := db.GetOrCreateCollection(s.collection, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection '%s': %w", s.collection, err)
	}
	s.col = col
	return col, nil
}

func (s *ChromemStore) Rebuild(ctx context.Context, chunks []ingest.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	s.col = nil
	s.mu.Unlock()
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("failed to clear vector db at '%s': %w", s.path, err)
	}

	col, err := s.open(true)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		metadatas[i] = encodeMetadata(chunk)
		contents[i] = chunk.Text
	}
	if err := col.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	col, err := s.open(false)
	if err != nil {
		return nil, err
	}

	// chromem rejects a result count above the stored document count.
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Hit{
			Chunk:      decodeChromemResult(res),
			Similarity: res.Similarity,
		})
	}
	return hits, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	col, err := s.open(false)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

func (s *ChromemStore) Close() error {
	return nil
}

func encodeMetadata(chunk ingest.Chunk) map[string]string {
	return map[string]string{
		"document_name": chunk.Metadata.DocumentName,
		"source_path":   chunk.Metadata.SourcePath,
		"page_number":   strconv.Itoa(chunk.Metadata.PageNumber),
		"source_type":   chunk.Metadata.SourceType,
		"start_index":   strconv.Itoa(chunk.StartIndex),
	}
}

func decodeChromemResult(res chromem.Result) ingest.Chunk {
	page, _ := strconv.Atoi(res.Metadata["page_number"])
	start, _ := strconv.Atoi(res.Metadata["start_index"])
	return ingest.Chunk{
		ID:         res.ID,
		Text:       res.Content,
		StartIndex: start,
		Metadata: ingest.Metadata{
			DocumentName: res.Metadata["document_name"],
			SourcePath:   res.Metadata["source_path"],
			PageNumber:   page,
			SourceType:   res.Metadata["source_type"],
		},
	}
}
