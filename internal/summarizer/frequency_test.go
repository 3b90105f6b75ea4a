package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeKeepsDocumentOrder(t *testing.T) {
	text := "Rivers carry water to the sea. " +
		"The weather was pleasant. " +
		"Water from rivers feeds the sea and the rivers flood. " +
		"Birds sang."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Rivers carry water to the sea. Water from rivers feeds the sea and the rivers flood.", got)
}

func TestSummarizeShortText(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize("Only one sentence here", 3)
	require.NoError(t, err)
	assert.Equal(t, "Only one sentence here", got)

	got, err = s.Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
