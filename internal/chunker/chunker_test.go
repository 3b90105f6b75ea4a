package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestWindowExample(t *testing.T) {
	w, err := NewWindow(4, 1)
	require.NoError(t, err)

	chunks := w.Split("abcdefghij")
	assert.Equal(t, []string{"abcd", "defg", "ghij", "j"}, texts(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, ChunkID(i), c.ID)
		assert.Equal(t, i*3, c.StartOffset)
	}
}

func TestWindowEmptyText(t *testing.T) {
	w, err := NewWindow(1000, 200)
	require.NoError(t, err)
	assert.Empty(t, w.Split(""))
}

func TestWindowRejectsNonPositiveStride(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{
		{4, 4}, {4, 5}, {0, 0}, {-1, 0}, {4, -1},
	} {
		_, err := NewWindow(tc.size, tc.overlap)
		assert.ErrorIs(t, err, ErrInvalidWindow, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestWindowReconstructsText(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 37) + "ünïcödé tail"
	for _, tc := range []struct{ size, overlap int }{
		{1000, 200}, {500, 0}, {7, 3}, {10, 9}, {1, 0},
	} {
		w, err := NewWindow(tc.size, tc.overlap)
		require.NoError(t, err)
		chunks := w.Split(text)

		var b strings.Builder
		b.WriteString(chunks[0].Text)
		for _, c := range chunks[1:] {
			r := []rune(c.Text)
			if len(r) > tc.overlap {
				b.WriteString(string(r[tc.overlap:]))
			}
		}
		assert.Equal(t, text, b.String(), "size=%d overlap=%d", tc.size, tc.overlap)

		n := len([]rune(text))
		stride := tc.size - tc.overlap
		assert.Len(t, chunks, (n+stride-1)/stride, "size=%d overlap=%d", tc.size, tc.overlap)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c.Text)), tc.size)
		}
	}
}

func TestSentenceChunkerOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks := c.Split("One. Two. Three. Four.")
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four."}, texts(chunks))
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 5, chunks[1].StartOffset)
	assert.Equal(t, 10, chunks[2].StartOffset)
}

func TestSentenceChunkerClampsOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 5)
	chunks := c.Split("A. B. C.")
	assert.Equal(t, []string{"A. B.", "B. C."}, texts(chunks))
}

func TestSentenceChunkerKeepsUnterminatedText(t *testing.T) {
	nonSpace := func(s string) string { return strings.Join(strings.Fields(s), "") }
	inputs := []string{
		"First sentence. Second sentence.\nA Notion paragraph without a full stop\nAnother line",
		"Wait... what?! Really",
		"no punctuation at all",
	}
	for _, in := range inputs {
		chunks := NewSentenceChunker(2, 0).Split(in)
		require.NotEmpty(t, chunks, in)
		var joined strings.Builder
		for _, c := range chunks {
			joined.WriteString(c.Text)
		}
		assert.Equal(t, nonSpace(in), nonSpace(joined.String()), in)
	}

	chunks := NewSentenceChunker(5, 0).Split("First sentence. Second sentence.\nA Notion paragraph without a full stop\nAnother line")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Another line")
}
