package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Completer sends a single-turn prompt to a chat-completion model.
type Completer struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	logger      *zap.Logger
}

type CompleterConfig struct {
	ClientConfig
	Model       string
	Temperature float32
	MaxTokens   int
	MaxRetries  int
	Logger      *zap.Logger
}

func NewCompleter(cfg CompleterConfig) (*Completer, error) {
	api, err := NewClient(cfg.ClientConfig)
	if err != nil {
		return nil, err
	}
	return NewCompleterWithClient(api, cfg), nil
}

// NewCompleterWithClient wraps an already configured go-openai client.
func NewCompleterWithClient(api *openai.Client, cfg CompleterConfig) *Completer {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Completer{
		api:         api,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		logger:      cfg.Logger,
	}
}

func (c *Completer) Name() string { return c.model }

// Complete returns the text of the first choice verbatim.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	start := time.Now()
	resp, err := Retry(ctx, c.maxRetries, c.logger, "chat", func() (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("completion done",
		zap.String("model", c.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", errors.New("completion returned empty text")
	}
	return text, nil
}
