// Package metrics exposes Prometheus counters for the ingestion and question
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ingestions        *prometheus.CounterVec
	chunks            *prometheus.CounterVec
	questions         *prometheus.CounterVec
	completionLatency prometheus.Histogram
	sessions          prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ingestions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_ingestions_total",
			Help: "Document ingestions by source and outcome.",
		}, []string{"source", "outcome"}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_chunks_total",
			Help: "Chunks seen by the indexer, by result.",
		}, []string{"result"}),
		questions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_questions_total",
			Help: "Questions asked, by outcome.",
		}, []string{"outcome"}),
		completionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docqa_completion_duration_seconds",
			Help:    "Latency of answer generation calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "docqa_sessions_active",
			Help: "Sessions currently held by the HTTP server.",
		}),
	}
}

func (m *Metrics) Ingestion(source, outcome string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Chunks(embedded, skipped int) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues("embedded").Add(float64(embedded))
	m.chunks.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) Question(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CompletionDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.completionLatency.Observe(d.Seconds())
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
