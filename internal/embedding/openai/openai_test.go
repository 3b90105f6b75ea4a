package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedLearnsDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125]}],"model":"m"}`))
	}))
	defer srv.Close()

	cfg := goopenai.DefaultConfig("k")
	cfg.BaseURL = srv.URL + "/v1"
	c := newWithAPI(goopenai.NewClientWithConfig(cfg), Config{Model: "m"})
	assert.Equal(t, 0, c.Dimension())

	v, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, v)
	assert.Equal(t, 3, c.Dimension())
	assert.Equal(t, "openai:m", c.Name())
}

func TestEmbedRejectsBlankText(t *testing.T) {
	c := newWithAPI(goopenai.NewClient("k"), Config{})
	_, err := c.Embed(context.Background(), "  ")
	assert.Error(t, err)
}
