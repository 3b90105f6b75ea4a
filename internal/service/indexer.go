package service

import (
	"context"
	"encoding"
	"fmt"

	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/metrics"
	"docqa/internal/vectorstore"
)

const sampleSize = 3

// IndexReport summarises one indexing run.
type IndexReport struct {
	Chunks    int
	Embedded  int
	Skipped   int
	Dimension int
	// Sample holds the text of the first few chunks when anything was indexed.
	Sample []string
}

// Indexer embeds chunks and rebuilds the collection from them.
type Indexer struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewIndexer(embedder domain.Embedder, store vectorstore.Storage, logger *zap.Logger, m *metrics.Metrics) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{embedder: embedder, store: store, logger: logger, metrics: m}
}

// Index replaces the collection with the embedded chunks. Chunks whose
// embedding fails are logged and left out. When none survive the collection
// is dropped, so later questions find no context. On error the embedder is
// rolled back to the state the current collection was built with.
func (ix *Indexer) Index(ctx context.Context, chunks []domain.Chunk) (report IndexReport, err error) {
	restore := ix.checkpoint()
	defer func() {
		if err != nil {
			restore()
		}
	}()
	report = IndexReport{Chunks: len(chunks)}
	kept, vectors, err := EmbedChunks(ctx, ix.embedder, chunks, ix.logger)
	if err != nil {
		return report, err
	}
	report.Embedded = len(kept)
	report.Skipped = len(chunks) - len(kept)
	ix.metrics.Chunks(report.Embedded, report.Skipped)

	if len(kept) == 0 {
		if err := ix.store.Drop(ctx); err != nil {
			return report, fmt.Errorf("drop collection: %w", err)
		}
		ix.logger.Warn("no chunk could be embedded", zap.Int("chunks", len(chunks)))
		return report, nil
	}

	report.Dimension = len(vectors[0])
	if err := ix.store.Reset(ctx, report.Dimension); err != nil {
		return report, fmt.Errorf("reset collection: %w", err)
	}
	if err := ix.store.Add(ctx, kept, vectors); err != nil {
		return report, fmt.Errorf("add chunks: %w", err)
	}
	for i := 0; i < len(chunks) && i < sampleSize; i++ {
		report.Sample = append(report.Sample, chunks[i].Text)
	}
	ix.logger.Info("collection rebuilt",
		zap.String("store", ix.store.Name()),
		zap.String("embedder", ix.embedder.Name()),
		zap.Int("chunks", report.Chunks),
		zap.Int("embedded", report.Embedded),
		zap.Int("skipped", report.Skipped),
		zap.Int("dimension", report.Dimension))
	return report, nil
}

// checkpoint captures fitted embedder state (TF-IDF vocabulary) and returns a
// func that puts it back. Stateless or unfitted embedders restore nothing.
func (ix *Indexer) checkpoint() func() {
	m, ok := ix.embedder.(encoding.BinaryMarshaler)
	if !ok {
		return func() {}
	}
	u, ok := ix.embedder.(encoding.BinaryUnmarshaler)
	if !ok {
		return func() {}
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return func() {}
	}
	return func() {
		if err := u.UnmarshalBinary(state); err != nil {
			ix.logger.Error("restore embedder state", zap.Error(err))
		}
	}
}

// EmbedChunks prepares embedder on the chunk texts and embeds each chunk in
// order. Failed chunks are skipped; only cancellation or a failed Prepare
// aborts the run.
func EmbedChunks(ctx context.Context, embedder domain.Embedder, chunks []domain.Chunk, logger *zap.Logger) ([]domain.Chunk, [][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}
	corpus := make([]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.Text
	}
	if err := embedder.Prepare(corpus); err != nil {
		return nil, nil, fmt.Errorf("prepare embedder: %w", err)
	}

	kept := make([]domain.Chunk, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	dim := 0
	for _, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Text)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if err == nil && len(vec) == 0 {
			err = fmt.Errorf("empty vector")
		}
		if err == nil && dim != 0 && len(vec) != dim {
			err = fmt.Errorf("dimension %d, expected %d", len(vec), dim)
		}
		if err != nil {
			logger.Warn("skipping chunk", zap.String("chunk", c.ID), zap.Error(err))
			continue
		}
		dim = len(vec)
		kept = append(kept, c)
		vectors = append(vectors, vec)
	}
	return kept, vectors, nil
}
