package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/lexrag/internal/config"
	"github.com/agenthands/lexrag/internal/ingest"
)

// ErrStoreNotFound means no index has been built yet; the HTTP layer maps it
// to 503.
var ErrStoreNotFound = errors.New("vector store not found, run the ingest command to build it")

// Hit is a retrieved chunk with its similarity score.
type Hit struct {
	Chunk      ingest.Chunk
	Similarity float32
}

// Store persists chunk vectors and serves similarity search. Rebuild always
// replaces the full index.
type Store interface {
	Rebuild(ctx context.Context, chunks []ingest.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// New selects the store backend from config.
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "chromem":
		return NewChromemStore(cfg.Path, cfg.Collection), nil
	case "qdrant":
		return NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantKey, cfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
