// Package flatindex is an exact nearest-neighbour index over squared L2
// distance, persisted with encoding/gob.
package flatindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Index stores vectors in insertion order; positions map to chunk positions.
type Index struct {
	Dimension int
	Vectors   [][]float32
}

// Hit is one search result.
type Hit struct {
	Position int
	Distance float32
}

func New(dimension int) *Index {
	return &Index{Dimension: dimension}
}

func (ix *Index) Len() int { return len(ix.Vectors) }

func (ix *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != ix.Dimension {
			return fmt.Errorf("vector %d: dimension %d, index expects %d", i, len(v), ix.Dimension)
		}
	}
	ix.Vectors = append(ix.Vectors, vectors...)
	return nil
}

// Search returns the k closest vectors, nearest first.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.Dimension {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(query), ix.Dimension)
	}
	hits := make([]Hit, len(ix.Vectors))
	for i, v := range ix.Vectors {
		hits[i] = Hit{Position: i, Distance: l2(v, query)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WriteFile gob-encodes v to path through a temporary file and a rename.
func WriteFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile decodes the gob stored at path into v.
func ReadFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
