package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func chunk(i int, text string) domain.Chunk {
	return domain.Chunk{ID: "chunk_" + string(rune('0'+i)), Index: i, Text: text}
}

func TestQueryBeforeResetFails(t *testing.T) {
	s := NewStorage("docs")
	_, err := s.Query(context.Background(), []float32{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrNoCollection)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewStorage("docs")
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Add(ctx,
		[]domain.Chunk{chunk(0, "east"), chunk(1, "north"), chunk(2, "north-east")},
		[][]float32{{1, 0}, {0, 1}, {1, 1}},
	))

	res, err := s.Query(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "north", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, "north-east", res[1].Chunk.Text)
}

func TestResetReplacesContents(t *testing.T) {
	ctx := context.Background()
	s := NewStorage("docs")
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Add(ctx, []domain.Chunk{chunk(0, "old")}, [][]float32{{1, 0}}))
	require.NoError(t, s.Reset(ctx, 3))
	require.NoError(t, s.Add(ctx, []domain.Chunk{chunk(0, "new")}, [][]float32{{0, 0, 1}}))

	res, err := s.Query(ctx, []float32{0, 0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Chunk.Text)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage("docs")
	require.NoError(t, s.Reset(ctx, 2))
	err := s.Add(ctx, []domain.Chunk{chunk(0, "x")}, [][]float32{{1, 2, 3}})
	assert.Error(t, err)
}

func TestDropMakesCollectionMissing(t *testing.T) {
	ctx := context.Background()
	s := NewStorage("docs")
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Drop(ctx))
	_, err := s.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrNoCollection)
	assert.ErrorIs(t, s.Add(ctx, []domain.Chunk{chunk(0, "x")}, [][]float32{{1, 0}}), domain.ErrNoCollection)
}

func TestTopKTiesPreferLowerIndex(t *testing.T) {
	top := NewTopK(2)
	for i := 0; i < 4; i++ {
		top.Offer(domain.SearchResult{Chunk: domain.Chunk{Index: i}, Score: 0.5})
	}
	res := top.Results()
	require.Len(t, res, 2)
	assert.Equal(t, 0, res[0].Chunk.Index)
	assert.Equal(t, 1, res[1].Chunk.Index)
}
