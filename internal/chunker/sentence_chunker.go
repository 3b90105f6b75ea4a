package chunker

import (
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/textutil"
)

// SentenceChunker groups whole sentences into chunks with a sentence overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

func (c *SentenceChunker) Split(text string) []domain.Chunk {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	// rune offset of every sentence in the original text
	offsets := make([]int, len(sentences))
	byteCursor, runeCursor := 0, 0
	for i, s := range sentences {
		at := strings.Index(text[byteCursor:], s)
		if at < 0 {
			offsets[i] = runeCursor
			continue
		}
		runeCursor += utf8.RuneCountInString(text[byteCursor : byteCursor+at])
		offsets[i] = runeCursor
		runeCursor += utf8.RuneCountInString(s)
		byteCursor += at + len(s)
	}

	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:          ChunkID(idx),
			Index:       idx,
			Text:        strings.Join(sentences[i:end], " "),
			StartOffset: offsets[i],
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}
