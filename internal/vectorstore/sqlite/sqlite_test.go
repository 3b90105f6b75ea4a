package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func openTest(t *testing.T, collection string) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "db", "vectors.db"), collection, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQueryMissingCollection(t *testing.T) {
	s := openTest(t, "pdf_docs")
	_, err := s.Query(context.Background(), []float32{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrNoCollection)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResetAddQueryDrop(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, "pdf-docs.session")

	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Add(ctx,
		[]domain.Chunk{
			{ID: "chunk_0", Index: 0, Text: "east"},
			{ID: "chunk_1", Index: 1, Text: "north", StartOffset: 800},
		},
		[][]float32{{1, 0}, {0, 1}},
	))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Query(ctx, []float32{0.1, 0.9}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.Chunk{ID: "chunk_1", Index: 1, Text: "north", StartOffset: 800}, res[0].Chunk)

	require.NoError(t, s.Reset(ctx, 3))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Error(t, s.Add(ctx, []domain.Chunk{{ID: "chunk_0"}}, [][]float32{{1, 0}}))

	require.NoError(t, s.Drop(ctx))
	_, err = s.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrNoCollection)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
