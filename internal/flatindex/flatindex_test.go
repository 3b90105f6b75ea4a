package flatindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchOrdersByDistance(t *testing.T) {
	ix := New(2)
	require.NoError(t, ix.Add([]float32{0, 0}, []float32{3, 4}, []float32{1, 1}))

	hits, err := ix.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{Position: 0, Distance: 0}, {Position: 2, Distance: 2}}, hits)

	hits, err = ix.Search([]float32{3, 4}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Position)
}

func TestDimensionChecks(t *testing.T) {
	ix := New(3)
	assert.Error(t, ix.Add([]float32{1, 2}))
	_, err := ix.Search([]float32{1}, 1)
	assert.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "vector_index.gob")
	ix := New(2)
	require.NoError(t, ix.Add([]float32{1, 2}, []float32{3, 4}))
	require.NoError(t, WriteFile(path, ix))

	var loaded Index
	require.NoError(t, ReadFile(path, &loaded))
	assert.Equal(t, *ix, loaded)

	assert.Error(t, ReadFile(filepath.Join(t.TempDir(), "missing.gob"), &loaded))
}
