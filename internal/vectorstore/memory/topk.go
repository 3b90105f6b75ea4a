package memory

import (
	"container/heap"
	"math"

	"docqa/internal/domain"
)

// TopK keeps the k highest scoring results seen so far.
type TopK struct {
	k int
	h resultHeap
}

func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(resultHeap, 0, k)}
}

// Offer considers r for inclusion.
func (t *TopK) Offer(r domain.SearchResult) {
	if t.k <= 0 {
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, r)
		return
	}
	if r.Score > t.h[0].Score {
		t.h[0] = r
		heap.Fix(&t.h, 0)
	}
}

// Results drains the collector, best score first.
func (t *TopK) Results() []domain.SearchResult {
	out := make([]domain.SearchResult, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(domain.SearchResult)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, zero if either has no magnitude.
func Cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// min-heap on Score, ties broken so the lower chunk index ranks higher
type resultHeap []domain.SearchResult

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].Score == h[j].Score {
		return h[i].Chunk.Index > h[j].Chunk.Index
	}
	return h[i].Score < h[j].Score
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) { *h = append(*h, x.(domain.SearchResult)) }

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
