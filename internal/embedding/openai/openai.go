package openai

import (
	"context"
	"errors"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"docqa/internal/llm"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	api        *goopenai.Client
	model      string
	dimension  int
	maxRetries int
	logger     *zap.Logger
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	llm.ClientConfig
	Model      string
	Dimensions int
	MaxRetries int
	Logger     *zap.Logger
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	api, err := llm.NewClient(cfg.ClientConfig)
	if err != nil {
		return nil, err
	}
	return newWithAPI(api, cfg), nil
}

func newWithAPI(api *goopenai.Client, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		api:        api,
		model:      cfg.Model,
		dimension:  cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Prepare is not required for remote embedding. The dimension is learnt on first embed.
func (c *Client) Prepare([]string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}
	req := goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.model),
	}
	if c.dimension > 0 {
		req.Dimensions = c.dimension
	}
	resp, err := llm.Retry(ctx, c.maxRetries, c.logger, "embeddings", func() (goopenai.EmbeddingResponse, error) {
		return c.api.CreateEmbeddings(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	v := resp.Data[0].Embedding
	if c.dimension == 0 {
		c.dimension = len(v)
	}
	return v, nil
}
