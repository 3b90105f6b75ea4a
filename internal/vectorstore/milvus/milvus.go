// Package milvus stores chunk vectors in a Milvus collection.
package milvus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"docqa/internal/domain"
)

const (
	fieldID     = "id"
	fieldChunk  = "chunk_id"
	fieldOffset = "start_offset"
	fieldText   = "text"
	fieldVector = "vector"

	maxTextLen = 65535
)

// Config contains the connection details of a Milvus server.
type Config struct {
	Address    string
	Database   string
	Username   string
	Password   string
	Collection string
	Metric     string
	Logger     *zap.Logger
}

// Storage keeps one Milvus collection per configured name.
type Storage struct {
	client     client.Client
	collection string
	metric     entity.MetricType
	dimension  int
	logger     *zap.Logger
}

// NewStorage connects to Milvus. The collection itself is created on Reset.
func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:19530"
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		DBName:   cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}
	return &Storage{
		client:     c,
		collection: cfg.Collection,
		metric:     metricType(cfg.Metric),
		logger:     cfg.Logger,
	}, nil
}

func metricType(value string) entity.MetricType {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return entity.IP
	case "L2", "EUCLIDEAN":
		return entity.L2
	default:
		return entity.COSINE
	}
}

// relevance maps a raw Milvus score so that higher always means closer.
func relevance(metric entity.MetricType, raw float32) float32 {
	if metric == entity.L2 {
		return -raw
	}
	return raw
}

func (s *Storage) Name() string { return "milvus:" + s.collection }

func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Drop(ctx); err != nil {
		return err
	}
	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "document chunks",
		Fields: []*entity.Field{
			{Name: fieldID, DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: false},
			{Name: fieldChunk, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: fieldOffset, DataType: entity.FieldTypeInt64},
			{Name: fieldText, DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": strconv.Itoa(maxTextLen)}},
			{Name: fieldVector, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": strconv.Itoa(dimension)}},
		},
	}
	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	idx, err := entity.NewIndexHNSW(s.metric, 8, 64)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	s.dimension = dimension
	s.logger.Debug("collection created", zap.Int("dimension", dimension))
	return nil
}

func (s *Storage) Drop(ctx context.Context) error {
	ok, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !ok {
		return nil
	}
	if err := s.client.DropCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	s.dimension = 0
	return nil
}

func (s *Storage) exists(ctx context.Context) (bool, error) {
	ok, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return ok, nil
}

func (s *Storage) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoCollection
	}
	dim := len(vectors[0])
	ids := make([]int64, len(chunks))
	chunkIDs := make([]string, len(chunks))
	offsets := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return fmt.Errorf("vector %d: dimension %d, expected %d", i, len(vectors[i]), dim)
		}
		ids[i] = int64(c.Index)
		chunkIDs[i] = c.ID
		offsets[i] = int64(c.StartOffset)
		texts[i] = c.Text
	}
	_, err = s.client.Insert(ctx, s.collection, "",
		entity.NewColumnInt64(fieldID, ids),
		entity.NewColumnVarChar(fieldChunk, chunkIDs),
		entity.NewColumnInt64(fieldOffset, offsets),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("milvus insert failed: %w", err)
	}
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("milvus flush failed: %w", err)
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoCollection
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, err
	}
	found, err := s.client.Search(ctx, s.collection, nil, "",
		[]string{fieldChunk, fieldOffset, fieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, s.metric, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	if found[0].Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", found[0].Err)
	}
	return toResults(s.metric, found[0]), nil
}

func toResults(metric entity.MetricType, r client.SearchResult) []domain.SearchResult {
	var (
		ids      []int64
		chunkIDs []string
		offsets  []int64
		texts    []string
	)
	if col, ok := r.IDs.(*entity.ColumnInt64); ok {
		ids = col.Data()
	}
	for _, f := range r.Fields {
		switch col := f.(type) {
		case *entity.ColumnVarChar:
			if col.Name() == fieldChunk {
				chunkIDs = col.Data()
			} else if col.Name() == fieldText {
				texts = col.Data()
			}
		case *entity.ColumnInt64:
			if col.Name() == fieldOffset {
				offsets = col.Data()
			}
		}
	}
	out := make([]domain.SearchResult, 0, r.ResultCount)
	for i := 0; i < r.ResultCount; i++ {
		var res domain.SearchResult
		if i < len(ids) {
			res.Chunk.Index = int(ids[i])
		}
		if i < len(chunkIDs) {
			res.Chunk.ID = chunkIDs[i]
		}
		if i < len(offsets) {
			res.Chunk.StartOffset = int(offsets[i])
		}
		if i < len(texts) {
			res.Chunk.Text = texts[i]
		}
		if i < len(r.Scores) {
			res.Score = relevance(metric, r.Scores[i])
		}
		out = append(out, res)
	}
	return out
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	stats, err := s.client.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus statistics failed: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("milvus row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func (s *Storage) Close() error { return s.client.Close() }
