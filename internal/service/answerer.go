package service

import (
	"context"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/metrics"
)

const promptTemplate = `Using only the following context, answer the question. If the answer is not in the context, say you can't find the answer.

Context:
{context}

Question: {question}

Answer:`

// BuildPrompt fills the answer prompt.
func BuildPrompt(contextText, question string) string {
	return strings.NewReplacer("{context}", contextText, "{question}", question).Replace(promptTemplate)
}

// Answerer asks the completion model to answer from retrieved context only.
type Answerer struct {
	completer domain.Completer
	metrics   *metrics.Metrics
}

func NewAnswerer(completer domain.Completer, m *metrics.Metrics) *Answerer {
	return &Answerer{completer: completer, metrics: m}
}

// Answer returns the model's text verbatim.
func (a *Answerer) Answer(ctx context.Context, contextText, question string) (string, error) {
	start := time.Now()
	defer func() { a.metrics.CompletionDuration(time.Since(start)) }()
	return a.completer.Complete(ctx, BuildPrompt(contextText, question))
}
