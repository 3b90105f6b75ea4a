// Package service holds the question-answering pipeline shared by the chat
// UI, the HTTP server and the offline index tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/metrics"
	"docqa/internal/source"
	"docqa/internal/vectorstore"
)

// wikiFallbackDepth bounds how many alternative titles are tried in a row.
const wikiFallbackDepth = 1

// User-facing messages.
const (
	MsgEmptyQuestion     = "Please type a question."
	MsgEmbeddingFailed   = "Failed to generate embedding for the question."
	MsgNoContext         = "I don't have enough context. Please upload a PDF or fetch a source first."
	MsgNoPDF             = "No file provided."
	MsgNoPDFText         = "No text extracted from PDF."
	MsgNoWikiTitle       = "Please enter a Wikipedia page title."
	MsgNotionMissingArgs = "Provide both Notion page URL and API key."
	MsgNoNotionText      = "No text found on the Notion page."
)

// PDFSource extracts the text layer of a PDF.
type PDFSource interface {
	Extract(r io.ReadSeeker) (string, error)
}

// WikiSource fetches encyclopedia articles.
type WikiSource interface {
	Page(ctx context.Context, title string) (string, error)
	Summary(ctx context.Context, title string, sentences int) (string, error)
	Search(ctx context.Context, query string) ([]string, error)
}

// NotionSource reads the paragraph text of a Notion page.
type NotionSource interface {
	PageText(ctx context.Context, pageURL, apiKey string) (string, error)
}

// WikiOptions selects between the full article and its first sentences.
type WikiOptions struct {
	Summary   bool
	Sentences int
}

// Deps wires a Session.
type Deps struct {
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      vectorstore.Storage
	Completer  domain.Completer
	Summarizer domain.Summarizer

	PDF       PDFSource
	Wikipedia WikiSource
	Notion    NotionSource
	// NotionAPIKey is used when a caller supplies none.
	NotionAPIKey string

	TopK             int
	SummarySentences int
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

// Stats is the debug view of a session.
type Stats struct {
	Collection   string
	Count        int
	LastEmbedded int
	Sample       []string
	Summary      string
}

// Session owns one user's collection and conversation. Every operation
// returns a message for display and never fails fatally.
type Session struct {
	chunker    domain.Chunker
	store      vectorstore.Storage
	indexer    *Indexer
	retriever  *Retriever
	answerer   *Answerer
	summarizer domain.Summarizer

	pdf       PDFSource
	wiki      WikiSource
	notion    NotionSource
	notionKey string

	summarySentences int
	logger           *zap.Logger
	metrics          *metrics.Metrics

	mu           sync.Mutex
	history      []domain.Turn
	lastEmbedded int
	sample       []string
	summary      string
}

func NewSession(d Deps) *Session {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.SummarySentences <= 0 {
		d.SummarySentences = 6
	}
	return &Session{
		chunker:          d.Chunker,
		store:            d.Store,
		indexer:          NewIndexer(d.Embedder, d.Store, d.Logger, d.Metrics),
		retriever:        NewRetriever(d.Embedder, d.Store, d.TopK),
		answerer:         NewAnswerer(d.Completer, d.Metrics),
		summarizer:       d.Summarizer,
		pdf:              d.PDF,
		wiki:             d.Wikipedia,
		notion:           d.Notion,
		notionKey:        d.NotionAPIKey,
		summarySentences: d.SummarySentences,
		logger:           d.Logger,
		metrics:          d.Metrics,
	}
}

// IngestPDF replaces the collection with the text of the PDF read from r.
func (s *Session) IngestPDF(ctx context.Context, name string, r io.ReadSeeker) string {
	if r == nil || s.pdf == nil {
		return MsgNoPDF
	}
	text, err := s.pdf.Extract(r)
	if err != nil {
		s.logger.Error("pdf extraction failed", zap.String("file", name), zap.Error(err))
		s.metrics.Ingestion("pdf", "error")
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		s.metrics.Ingestion("pdf", "empty")
		return MsgNoPDFText
	}
	report, err := s.ingest(ctx, "pdf", text)
	if err != nil {
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
	return fmt.Sprintf("Successfully processed %d PDF chunks. (embedded: %d)", report.Chunks, report.Embedded)
}

// IngestWikipedia replaces the collection with a Wikipedia article. A missing
// title falls back to the best search hit and a disambiguation page to its
// first option, at most wikiFallbackDepth times.
func (s *Session) IngestWikipedia(ctx context.Context, title string, opts WikiOptions) string {
	return s.ingestWikipedia(ctx, strings.TrimSpace(title), opts, 0)
}

func (s *Session) ingestWikipedia(ctx context.Context, title string, opts WikiOptions, depth int) string {
	if title == "" {
		return MsgNoWikiTitle
	}
	text, err := s.fetchWikipedia(ctx, title, opts)

	var pageErr *source.PageError
	var disErr *source.DisambiguationError
	switch {
	case errors.As(err, &pageErr):
		if depth >= wikiFallbackDepth {
			s.metrics.Ingestion("wikipedia", "not_found")
			return "Wikipedia page not found for: " + title
		}
		hits, serr := s.wiki.Search(ctx, title)
		if serr != nil || len(hits) == 0 {
			if serr != nil {
				s.logger.Warn("wikipedia search failed", zap.String("title", title), zap.Error(serr))
			}
			s.metrics.Ingestion("wikipedia", "not_found")
			return "Wikipedia page not found for: " + title
		}
		return fmt.Sprintf("Page '%s' not found. Using nearest match '%s'.\n", title, hits[0]) +
			s.ingestWikipedia(ctx, hits[0], opts, depth+1)
	case errors.As(err, &disErr):
		if len(disErr.Options) == 0 {
			s.metrics.Ingestion("wikipedia", "not_found")
			return fmt.Sprintf("Ambiguous title '%s', but no options found.", title)
		}
		if depth >= wikiFallbackDepth {
			s.metrics.Ingestion("wikipedia", "not_found")
			return "Wikipedia page not found for: " + title
		}
		option := disErr.Options[0]
		return fmt.Sprintf("Title '%s' is ambiguous. Using first option '%s'.\n", title, option) +
			s.ingestWikipedia(ctx, option, opts, depth+1)
	case err != nil:
		s.logger.Error("wikipedia fetch failed", zap.String("title", title), zap.Error(err))
		s.metrics.Ingestion("wikipedia", "error")
		return fmt.Sprintf("Error fetching Wikipedia page: %v", err)
	}

	if strings.TrimSpace(text) == "" {
		s.metrics.Ingestion("wikipedia", "empty")
		return fmt.Sprintf("Wikipedia returned no text for '%s'.", title)
	}
	report, err := s.ingest(ctx, "wikipedia", text)
	if err != nil {
		return fmt.Sprintf("Error fetching Wikipedia page: %v", err)
	}
	return fmt.Sprintf("Successfully processed %d Wikipedia chunks from '%s'. (embedded: %d)", report.Chunks, title, report.Embedded)
}

func (s *Session) fetchWikipedia(ctx context.Context, title string, opts WikiOptions) (string, error) {
	if s.wiki == nil {
		return "", errors.New("wikipedia source not configured")
	}
	if opts.Summary {
		n := opts.Sentences
		if n <= 0 {
			n = s.summarySentences
		}
		return s.wiki.Summary(ctx, title, n)
	}
	return s.wiki.Page(ctx, title)
}

// IngestNotion replaces the collection with the paragraphs of a Notion page.
func (s *Session) IngestNotion(ctx context.Context, pageURL, apiKey string) string {
	if apiKey == "" {
		apiKey = s.notionKey
	}
	if strings.TrimSpace(pageURL) == "" || apiKey == "" {
		return MsgNotionMissingArgs
	}
	if s.notion == nil {
		return "Error fetching Notion page: notion source not configured"
	}
	text, err := s.notion.PageText(ctx, pageURL, apiKey)
	if err != nil {
		s.logger.Error("notion fetch failed", zap.String("url", pageURL), zap.Error(err))
		s.metrics.Ingestion("notion", "error")
		return fmt.Sprintf("Error fetching Notion page: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		s.metrics.Ingestion("notion", "empty")
		return MsgNoNotionText
	}
	report, err := s.ingest(ctx, "notion", text)
	if err != nil {
		return fmt.Sprintf("Error fetching Notion page: %v", err)
	}
	return fmt.Sprintf("Successfully processed %d Notion chunks. (embedded: %d)", report.Chunks, report.Embedded)
}

func (s *Session) ingest(ctx context.Context, kind, text string) (IndexReport, error) {
	chunks := s.chunker.Split(text)
	report, err := s.indexer.Index(ctx, chunks)
	if err != nil {
		s.logger.Error("indexing failed", zap.String("source", kind), zap.Error(err))
		s.metrics.Ingestion(kind, "error")
		return report, err
	}
	s.metrics.Ingestion(kind, "ok")

	summary := ""
	if s.summarizer != nil && report.Embedded > 0 {
		if sum, err := s.summarizer.Summarize(text, 3); err == nil {
			summary = sum
		}
	}
	s.mu.Lock()
	s.lastEmbedded = report.Embedded
	s.sample = report.Sample
	s.summary = summary
	s.mu.Unlock()
	return report, nil
}

// Ask answers question from the indexed document and records both turns.
func (s *Session) Ask(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return MsgEmptyQuestion
	}
	s.appendTurn(domain.RoleUser, question)
	answer := s.answer(ctx, question)
	s.appendTurn(domain.RoleAssistant, answer)
	return answer
}

func (s *Session) answer(ctx context.Context, question string) string {
	ret, err := s.retriever.Retrieve(ctx, question)
	switch {
	case errors.Is(err, ErrQuestionEmbedding):
		s.logger.Warn("question embedding failed", zap.Error(err))
		s.metrics.Question("embedding_failed")
		return MsgEmbeddingFailed
	case errors.Is(err, ErrInsufficientContext):
		s.metrics.Question("no_context")
		return MsgNoContext
	case err != nil:
		s.logger.Error("retrieval failed", zap.Error(err))
		s.metrics.Question("error")
		return fmt.Sprintf("Error while generating answer: %v", err)
	}
	s.logger.Debug("context retrieved", zap.Int("results", len(ret.Results)), zap.Int("context_len", len(ret.Context)))

	answer, err := s.answerer.Answer(ctx, ret.Context, question)
	if err != nil {
		s.logger.Error("completion failed", zap.Error(err))
		s.metrics.Question("error")
		return fmt.Sprintf("Error while generating answer: %v", err)
	}
	s.metrics.Question("answered")
	return answer
}

func (s *Session) appendTurn(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, domain.Turn{Role: role, Content: content})
}

// History returns a copy of the conversation so far.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.history...)
}

// ClearHistory forgets the conversation. The collection is kept.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Stats reports what is currently indexed.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Collection:   s.store.Name(),
		Count:        n,
		LastEmbedded: s.lastEmbedded,
		Sample:       append([]string(nil), s.sample...),
		Summary:      s.summary,
	}, nil
}

// Drop removes the session's collection.
func (s *Session) Drop(ctx context.Context) error {
	return s.store.Drop(ctx)
}

// Close releases the session's store.
func (s *Session) Close() error {
	return s.store.Close()
}
