package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docqa.log")
	log, err := New(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	log.Debug("indexed document")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "indexed document")
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	log, err := New(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))
}
