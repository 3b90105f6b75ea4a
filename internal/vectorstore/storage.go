// Package vectorstore defines the collection abstraction the indexer writes
// to and the retriever reads from, and opens the configured backend.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/milvus"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

// ErrNoCollection is returned when the collection has not been built yet.
var ErrNoCollection = domain.ErrNoCollection

// Storage persists chunk vectors and supports similarity search.
// A collection is rebuilt from scratch on every ingestion through Reset.
type Storage interface {
	Name() string
	// Reset drops the collection if present and creates an empty one.
	Reset(ctx context.Context, dimension int) error
	// Drop removes the collection. Dropping a missing collection is not an error.
	Drop(ctx context.Context) error
	Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	// Query returns up to topK results, best match first.
	Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	// Count returns the number of stored vectors, zero when the collection is missing.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open connects to the store selected by cfg using the given collection name.
func Open(ctx context.Context, cfg config.VectorStoreConfig, collection string, logger *zap.Logger) (Storage, error) {
	logger = logger.Named("vectorstore").With(zap.String("type", cfg.Type), zap.String("collection", collection))
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(collection), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("vector_store.qdrant section missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     envOrEmpty(cfg.Qdrant.APIKeyEnv),
			Collection: collection,
			Distance:   cfg.Qdrant.Distance,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
			Logger:     logger,
		}), nil
	case "milvus":
		if cfg.Milvus == nil {
			return nil, fmt.Errorf("vector_store.milvus section missing")
		}
		s, err := milvus.NewStorage(ctx, milvus.Config{
			Address:    cfg.Milvus.Address,
			Database:   cfg.Milvus.Database,
			Username:   cfg.Milvus.Username,
			Password:   envOrEmpty(cfg.Milvus.PasswordEnv),
			Collection: collection,
			Metric:     cfg.Milvus.Metric,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("vector_store.sqlite section missing")
		}
		s, err := sqlite.NewStorage(cfg.SQLite.Path, collection, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
