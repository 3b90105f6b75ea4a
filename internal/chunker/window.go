package chunker

import (
	"errors"
	"fmt"

	"docqa/internal/domain"
)

// ErrInvalidWindow is returned for a size/overlap pair that cannot make forward progress.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Window splits text into fixed-size character windows. Each window starts
// Size-Overlap characters after the previous one; the last may be shorter.
type Window struct {
	size    int
	overlap int
}

// NewWindow validates the window geometry.
func NewWindow(size, overlap int) (*Window, error) {
	if err := ValidateWindow(size, overlap); err != nil {
		return nil, err
	}
	return &Window{size: size, overlap: overlap}, nil
}

// ValidateWindow reports whether size and overlap describe a positive stride.
func ValidateWindow(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidWindow, size)
	case overlap < 0:
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidWindow, overlap)
	case overlap >= size:
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidWindow, overlap, size)
	}
	return nil
}

// Stride is the distance between the starts of consecutive windows.
func (w *Window) Stride() int { return w.size - w.overlap }

// Split cuts text into windows. Offsets and lengths count runes, not bytes.
func (w *Window) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	stride := w.Stride()
	chunks := make([]domain.Chunk, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + w.size
		if end > len(runes) {
			end = len(runes)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:          ChunkID(idx),
			Index:       idx,
			Text:        string(runes[start:end]),
			StartOffset: start,
		})
	}
	return chunks
}

// ChunkID is the stable ordinal identifier of the i-th chunk of an ingestion.
func ChunkID(i int) string { return fmt.Sprintf("chunk_%d", i) }
