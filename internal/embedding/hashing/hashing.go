// Package hashing provides a stateless local embedder based on the hashing
// trick. It needs no corpus preparation and no network access.
package hashing

import (
	"context"
	"errors"
	"hash/fnv"
	"math"

	"docqa/internal/textutil"
)

const DefaultDimension = 256

// Embedder maps every term and adjacent term pair to a signed bucket.
type Embedder struct {
	dim int
}

func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dim: dimension}
}

func (e *Embedder) Name() string { return "hashing" }

func (e *Embedder) Prepare([]string) error { return nil }

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	terms := textutil.Terms(text)
	if len(terms) == 0 {
		return nil, errors.New("no terms to embed")
	}
	vec := make([]float32, e.dim)
	for i, t := range terms {
		e.add(vec, t, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+t, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}
