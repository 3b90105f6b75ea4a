package domain

import (
	"context"
	"errors"
)

// Document is the plain text extracted from one source.
type Document struct {
	ID      string
	Source  string
	Title   string
	Content string
}

// Chunk is a contiguous window of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID          string
	Index       int
	Text        string
	StartOffset int
}

// SearchResult represents a matching chunk with a relevance score.
// Higher scores are closer matches regardless of the store's distance metric.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role    Role
	Content string
}

// Chunker splits text into chunks suitable for retrieval indexing.
type Chunker interface {
	Split(text string) []Chunk
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer turns a prompt into generated text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// ErrNoCollection is returned by vector stores queried before any collection
// was built, or after it was dropped.
var ErrNoCollection = errors.New("collection does not exist")
