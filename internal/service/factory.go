package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/llm"
	"docqa/internal/metrics"
	"docqa/internal/source"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
)

// Components are the process-wide pieces shared by every session.
type Components struct {
	cfg       *config.AppConfig
	completer domain.Completer
	pdf       *source.PDFExtractor
	wiki      *source.Wikipedia
	notion    *source.Notion
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewComponents builds the completer and the document sources. It fails when
// the completion API key is missing.
func NewComponents(cfg *config.AppConfig, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	cc := cfg.Completer
	completer, err := llm.NewCompleter(llm.CompleterConfig{
		ClientConfig: llm.ClientConfig{
			BaseURL:   cc.BaseURL,
			APIKeyEnv: cc.APIKeyEnv,
			Timeout:   time.Duration(cc.TimeoutSecs) * time.Second,
		},
		Model:       cc.Model,
		Temperature: cc.Temperature,
		MaxTokens:   cc.MaxTokens,
		MaxRetries:  cc.MaxRetries,
		Logger:      logger.Named("completer"),
	})
	if err != nil {
		return nil, fmt.Errorf("completer: %w", err)
	}
	w := cfg.Sources.Wikipedia
	return &Components{
		cfg:       cfg,
		completer: completer,
		pdf:       source.NewPDFExtractor(cfg.Sources.PDF.LicenseKeyEnv, logger.Named("pdf")),
		wiki: source.NewWikipedia(source.WikipediaConfig{
			BaseURL:   w.BaseURL,
			UserAgent: w.UserAgent,
			Timeout:   time.Duration(w.TimeoutSecs) * time.Second,
			Logger:    logger.Named("wikipedia"),
		}),
		notion:  source.NewNotion(logger.Named("notion")),
		logger:  logger,
		metrics: m,
	}, nil
}

// NewSession opens a session on the named collection. Each session gets its
// own embedder since local embedders carry per-document state.
func (c *Components) NewSession(ctx context.Context, collection string) (*Session, error) {
	ch, err := NewChunker(c.cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(c.cfg.Embedder, c.logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	store, err := vectorstore.Open(ctx, c.cfg.VectorStore, collection, c.logger)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	return NewSession(Deps{
		Chunker:          ch,
		Embedder:         emb,
		Store:            store,
		Completer:        c.completer,
		Summarizer:       summarizer.NewFrequencySummarizer(),
		PDF:              c.pdf,
		Wikipedia:        c.wiki,
		Notion:           c.notion,
		NotionAPIKey:     envOrEmpty(c.cfg.Sources.Notion.APIKeyEnv),
		TopK:             c.cfg.Retriever.TopK,
		SummarySentences: c.cfg.Sources.Wikipedia.SummarySentences,
		Logger:           c.logger.With(zap.String("collection", collection)),
		Metrics:          c.metrics,
	}), nil
}

// NewChunker builds the configured chunker.
func NewChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	case "window", "":
		w, err := chunker.NewWindow(cfg.Size, cfg.Overlap)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported chunker type: %s", cfg.Type)
	}
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
