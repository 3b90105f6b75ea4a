// Package embedding selects the text embedder named in configuration.
package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/llm"
)

// New builds the embedder described by cfg.
func New(cfg config.EmbedderConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai", "":
		oc := cfg.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("embedder: openai section missing")
		}
		c, err := openai.NewClient(openai.Config{
			ClientConfig: llm.ClientConfig{
				BaseURL:   oc.BaseURL,
				APIKeyEnv: oc.APIKeyEnv,
				Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			},
			Model:      oc.Model,
			Dimensions: cfg.Dimensions,
			MaxRetries: oc.MaxRetries,
			Logger:     logger.Named("embedder"),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
