package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const DefaultTopK = 5

var (
	ErrQuestionEmbedding   = errors.New("failed to embed question")
	ErrInsufficientContext = errors.New("insufficient context")
)

// Retrieval is the outcome of a nearest-chunk lookup.
type Retrieval struct {
	Results []domain.SearchResult
	// Context is the text of Results in rank order, joined by single spaces.
	Context string
}

type Retriever struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	topK     int
}

func NewRetriever(embedder domain.Embedder, store vectorstore.Storage, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve embeds question and returns its nearest chunks. A missing or
// empty collection yields ErrInsufficientContext.
func (r *Retriever) Retrieve(ctx context.Context, question string) (Retrieval, error) {
	vec, err := r.embedder.Embed(ctx, question)
	if err == nil && len(vec) == 0 {
		err = errors.New("empty vector")
	}
	if err != nil {
		return Retrieval{}, fmt.Errorf("%w: %v", ErrQuestionEmbedding, err)
	}
	results, err := r.store.Query(ctx, vec, r.topK)
	if errors.Is(err, vectorstore.ErrNoCollection) {
		return Retrieval{}, ErrInsufficientContext
	}
	if err != nil {
		return Retrieval{}, fmt.Errorf("query %s: %w", r.store.Name(), err)
	}
	texts := make([]string, 0, len(results))
	for _, res := range results {
		if res.Chunk.Text != "" {
			texts = append(texts, res.Chunk.Text)
		}
	}
	if len(texts) == 0 {
		return Retrieval{Results: results}, ErrInsufficientContext
	}
	return Retrieval{Results: results, Context: strings.Join(texts, " ")}, nil
}
