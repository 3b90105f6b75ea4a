package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa/internal/config"
)

func TestNewSelectsLocalEmbedders(t *testing.T) {
	emb, err := New(config.EmbedderConfig{Type: "tfidf"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())

	emb, err = New(config.EmbedderConfig{Type: "hashing", Dimensions: 64}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "hashing", emb.Name())
	assert.Equal(t, 64, emb.Dimension())
}

func TestNewOpenAI(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "openai"}, zap.NewNop())
	assert.ErrorContains(t, err, "openai section missing")

	t.Setenv("DOCQA_TEST_EMBED_KEY", "")
	_, err = New(config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIConfig{APIKeyEnv: "DOCQA_TEST_EMBED_KEY"}}, zap.NewNop())
	assert.ErrorContains(t, err, "missing API key")

	t.Setenv("DOCQA_TEST_EMBED_KEY", "k")
	emb, err := New(config.EmbedderConfig{Type: "openai", OpenAI: &config.OpenAIConfig{APIKeyEnv: "DOCQA_TEST_EMBED_KEY", Model: "text-embedding-3-small"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "openai:text-embedding-3-small", emb.Name())
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "word2vec"}, zap.NewNop())
	assert.Error(t, err)
}
