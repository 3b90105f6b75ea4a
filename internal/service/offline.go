package service

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/flatindex"
)

var (
	ErrNoText        = errors.New("no extractable text")
	ErrEmptyQuestion = errors.New("empty question")
)

// indexFile is the content of the standalone vector index file.
type indexFile struct {
	Index         *flatindex.Index
	Embedder      string
	EmbedderState []byte
}

// BuildReport describes a written standalone index.
type BuildReport struct {
	Chunks    int
	Indexed   int
	Dimension int
}

// Match is a chunk returned by an offline query.
type Match struct {
	Chunk    domain.Chunk
	Distance float32
}

// Offline builds and queries the two-file standalone index, without a
// vector store or completion model.
type Offline struct {
	cfg      config.StandaloneConfig
	embedder domain.Embedder
	logger   *zap.Logger
}

func NewOffline(cfg config.StandaloneConfig, embedder domain.Embedder, logger *zap.Logger) *Offline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Offline{cfg: cfg, embedder: embedder, logger: logger}
}

// Build chunks and embeds text and writes the chunk and index files.
// Blank text returns ErrNoText and writes nothing.
func (o *Offline) Build(ctx context.Context, text string) (BuildReport, error) {
	if strings.TrimSpace(text) == "" {
		return BuildReport{}, ErrNoText
	}
	w, err := chunker.NewWindow(o.cfg.ChunkSize, o.cfg.Overlap)
	if err != nil {
		return BuildReport{}, err
	}
	chunks := w.Split(text)
	kept, vectors, err := EmbedChunks(ctx, o.embedder, chunks, o.logger)
	if err != nil {
		return BuildReport{}, err
	}
	report := BuildReport{Chunks: len(chunks), Indexed: len(kept)}
	if len(kept) == 0 {
		return report, errors.New("no chunk could be embedded")
	}
	report.Dimension = len(vectors[0])

	ix := flatindex.New(report.Dimension)
	if err := ix.Add(vectors...); err != nil {
		return report, err
	}
	file := indexFile{Index: ix, Embedder: o.embedder.Name()}
	if m, ok := o.embedder.(encoding.BinaryMarshaler); ok {
		if file.EmbedderState, err = m.MarshalBinary(); err != nil {
			return report, fmt.Errorf("save embedder state: %w", err)
		}
	}
	if err := flatindex.WriteFile(o.cfg.ChunksFile, kept); err != nil {
		return report, err
	}
	if err := flatindex.WriteFile(o.cfg.IndexFile, file); err != nil {
		return report, err
	}
	o.logger.Info("standalone index written",
		zap.String("chunks_file", o.cfg.ChunksFile),
		zap.String("index_file", o.cfg.IndexFile),
		zap.Int("chunks", report.Chunks),
		zap.Int("indexed", report.Indexed))
	return report, nil
}

// Query loads both files and returns the chunks nearest to question.
func (o *Offline) Query(ctx context.Context, question string) ([]Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	var chunks []domain.Chunk
	if err := flatindex.ReadFile(o.cfg.ChunksFile, &chunks); err != nil {
		return nil, err
	}
	var file indexFile
	if err := flatindex.ReadFile(o.cfg.IndexFile, &file); err != nil {
		return nil, err
	}
	if file.Index == nil || file.Index.Len() != len(chunks) {
		return nil, fmt.Errorf("index and chunk files disagree")
	}
	if file.Embedder != o.embedder.Name() {
		return nil, fmt.Errorf("index was built with embedder %q, configured embedder is %q", file.Embedder, o.embedder.Name())
	}
	if u, ok := o.embedder.(encoding.BinaryUnmarshaler); ok && len(file.EmbedderState) > 0 {
		if err := u.UnmarshalBinary(file.EmbedderState); err != nil {
			return nil, fmt.Errorf("restore embedder state: %w", err)
		}
	}
	vec, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionEmbedding, err)
	}
	hits, err := file.Index.Search(vec, o.cfg.TopK)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, Match{Chunk: chunks[h.Position], Distance: h.Distance})
	}
	return out, nil
}

// Preview returns the first n characters of text followed by an ellipsis.
func Preview(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
