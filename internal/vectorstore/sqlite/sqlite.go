// Package sqlite keeps chunk vectors in a SQLite database file and searches
// them by brute force.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"docqa/internal/domain"
	"docqa/internal/vectorstore/memory"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Storage stores one collection as one table.
type Storage struct {
	db         *sql.DB
	collection string
	table      string
	logger     *zap.Logger
}

func NewStorage(dbPath, collection string, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Storage{
		db:         db,
		collection: collection,
		table:      "chunks_" + unsafeName.ReplaceAllString(collection, "_"),
		logger:     logger,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (s *Storage) Name() string { return "sqlite:" + s.collection }

func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %q`, s.table),
		fmt.Sprintf(`CREATE TABLE %q (
			idx          INTEGER PRIMARY KEY,
			chunk_id     TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			text         TEXT NOT NULL,
			vector       BLOB NOT NULL
		)`, s.table),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO collections (name, dimension) VALUES (?, ?)`, s.collection, dimension); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) Drop(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, s.table)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return err
	}
	return tx.Commit()
}

// dimension returns the collection dimension, or domain.ErrNoCollection.
func (s *Storage) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, s.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoCollection
	}
	return dim, err
}

func (s *Storage) Add(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT OR REPLACE INTO %q (idx, chunk_id, start_offset, text, vector) VALUES (?, ?, ?, ?, ?)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return fmt.Errorf("vector %d: dimension %d, collection expects %d", i, len(vectors[i]), dim)
		}
		if _, err := stmt.ExecContext(ctx, c.Index, c.ID, c.StartOffset, c.Text, encodeVector(vectors[i])); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	if _, err := s.dimension(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT idx, chunk_id, start_offset, text, vector FROM %q`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := memory.NewTopK(topK)
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Index, &c.ID, &c.StartOffset, &c.Text, &blob); err != nil {
			return nil, err
		}
		top.Offer(domain.SearchResult{Chunk: c, Score: memory.Cosine(decodeVector(blob), vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return top.Results(), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	if _, err := s.dimension(ctx); err != nil {
		if errors.Is(err, domain.ErrNoCollection) {
			return 0, nil
		}
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, s.table)).Scan(&n)
	return n, err
}

func (s *Storage) Close() error { return s.db.Close() }

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
