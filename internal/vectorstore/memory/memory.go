package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docqa/internal/domain"
)

// Storage is an in-process vector store using brute-force cosine similarity.
// It holds at most one collection; before Reset, or after Drop, queries fail
// with domain.ErrNoCollection.
type Storage struct {
	mu         sync.RWMutex
	collection string
	exists     bool
	dimension  int
	vectors    [][]float32
	chunks     []domain.Chunk
}

func NewStorage(collection string) *Storage { return &Storage{collection: collection} }

func (s *Storage) Name() string { return "memory:" + s.collection }

func (s *Storage) Reset(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = true
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.dimension = 0
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Add(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return domain.ErrNoCollection
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d: dimension %d, collection expects %d", i, len(v), s.dimension)
		}
	}
	for _, v := range vectors {
		s.vectors = append(s.vectors, append([]float32(nil), v...))
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, domain.ErrNoCollection
	}
	if topK <= 0 {
		topK = 5
	}
	top := NewTopK(topK)
	for i := range s.vectors {
		top.Offer(domain.SearchResult{Chunk: s.chunks[i], Score: Cosine(s.vectors[i], vector)})
	}
	return top.Results(), nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Close() error { return nil }
