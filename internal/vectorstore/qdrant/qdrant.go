package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa/internal/domain"
)

const upsertBatch = 256

// Storage is a minimal REST client to Qdrant holding one collection.
type Storage struct {
	url        string
	apiKey     string
	collection string
	distance   string
	client     *http.Client
	logger     *zap.Logger
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Storage{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   cfg.Distance,
		client:     &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

func (s *Storage) Name() string { return "qdrant:" + s.collection }

type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Drop(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return err
	}
	s.logger.Debug("collection created", zap.Int("dimension", dimension))
	return nil
}

func (s *Storage) Drop(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

type point struct {
	ID      int            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *Storage) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for start := 0; start < len(chunks); start += upsertBatch {
		end := min(start+upsertBatch, len(chunks))
		points := make([]point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, point{
				ID:     chunks[i].Index,
				Vector: vectors[i],
				Payload: map[string]any{
					"chunk_id":     chunks[i].ID,
					"index":        chunks[i].Index,
					"start_offset": chunks[i].StartOffset,
					"text":         chunks[i].Text,
				},
			})
		}
		err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
		if isNotFound(err) {
			return domain.ErrNoCollection
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		Score   float32 `json:"score"`
		Payload struct {
			ChunkID     string `json:"chunk_id"`
			Index       int    `json:"index"`
			StartOffset int    `json:"start_offset"`
			Text        string `json:"text"`
		} `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp searchResponse
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp)
	if isNotFound(err) {
		return nil, domain.ErrNoCollection
	}
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		// Euclid scores are distances
		if s.distance == "Euclid" {
			score = -score
		}
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:          r.Payload.ChunkID,
				Index:       r.Payload.Index,
				StartOffset: r.Payload.StartOffset,
				Text:        r.Payload.Text,
			},
			Score: score,
		})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
