// Package llm wraps an OpenAI-compatible API (OpenAI itself, or Gemini through
// its OpenAI compatibility endpoint) for embeddings and text completion.
package llm

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// ClientConfig selects the endpoint and credentials.
type ClientConfig struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

// NewClient builds a go-openai client. The API key is read from the
// environment variable named by APIKeyEnv.
func NewClient(cfg ClientConfig) (*openai.Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GOOGLE_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	oc := openai.DefaultConfig(key)
	oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openai.NewClientWithConfig(oc), nil
}
