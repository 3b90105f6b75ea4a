package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/service"
)

func TestBlankQuestionIsNotSearched(t *testing.T) {
	for _, input := range []string{"\n", "   \n", ""} {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config", "/nonexistent/dir/config.yaml"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "Ask a question: "+service.MsgEmptyQuestion+"\n", out.String())
	}
}

func TestReadQuestionPrefersArgs(t *testing.T) {
	var out bytes.Buffer
	q, err := readQuestion(strings.NewReader("ignored\n"), &out, []string{"where", "are", "glaciers?"})
	require.NoError(t, err)
	assert.Equal(t, "where are glaciers?", q)
	assert.Empty(t, out.String())

	q, err = readQuestion(strings.NewReader("  how deep is the crust?\n"), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, "how deep is the crust?", q)
}
