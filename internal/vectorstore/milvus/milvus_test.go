package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricType(t *testing.T) {
	assert.Equal(t, entity.COSINE, metricType(""))
	assert.Equal(t, entity.COSINE, metricType("cosine"))
	assert.Equal(t, entity.IP, metricType("dot"))
	assert.Equal(t, entity.L2, metricType("L2"))
}

func TestRelevanceOrdersL2Distances(t *testing.T) {
	assert.Greater(t, relevance(entity.L2, 0.1), relevance(entity.L2, 0.9))
	assert.Equal(t, float32(0.7), relevance(entity.COSINE, 0.7))
}

func TestToResults(t *testing.T) {
	r := client.SearchResult{
		ResultCount: 2,
		IDs:         entity.NewColumnInt64(fieldID, []int64{3, 1}),
		Fields: client.ResultSet{
			entity.NewColumnVarChar(fieldChunk, []string{"chunk_3", "chunk_1"}),
			entity.NewColumnInt64(fieldOffset, []int64{2400, 800}),
			entity.NewColumnVarChar(fieldText, []string{"third", "first"}),
		},
		Scores: []float32{0.9, 0.4},
	}
	res := toResults(entity.COSINE, r)
	require.Len(t, res, 2)
	assert.Equal(t, "chunk_3", res[0].Chunk.ID)
	assert.Equal(t, 3, res[0].Chunk.Index)
	assert.Equal(t, 2400, res[0].Chunk.StartOffset)
	assert.Equal(t, "third", res[0].Chunk.Text)
	assert.Equal(t, float32(0.4), res[1].Score)
}
