// Package metrics provides Prometheus metrics for ingestion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvest"

// Outcome labels for ingestion runs.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeQuotaDenied = "quota_denied"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
)

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests and embedded clients do not collide.
type Metrics struct {
	registry *prometheus.Registry

	Runs              *prometheus.CounterVec
	ActiveRuns        prometheus.Gauge
	RunDuration       prometheus.Histogram
	PagesCrawled      prometheus.Counter
	Documents         *prometheus.CounterVec
	Fragments         prometheus.Counter
	CrawlDuration     prometheus.Histogram
	EmbeddingDuration prometheus.Histogram
	QuotaDecisions    *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by outcome",
		}, []string{"outcome"}),
		ActiveRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_active_runs",
			Help:      "Ingestion runs currently in progress",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of ingestion runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PagesCrawled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_pages_total",
			Help:      "Pages returned by the crawler",
		}),
		Documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_documents_total",
			Help:      "Documents by result",
		}, []string{"result"}),
		Fragments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_fragments_total",
			Help:      "Fragments persisted",
		}),
		CrawlDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of crawls",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		EmbeddingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Duration of per-document embedding calls",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		QuotaDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota decisions by result and plan",
		}, []string{"result", "plan"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted marks a run as active and returns a func that records its
// outcome and duration.
func (m *Metrics) RunStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.ActiveRuns.Inc()
	return func(outcome string) {
		m.ActiveRuns.Dec()
		m.Runs.WithLabelValues(outcome).Inc()
		m.RunDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveCrawl records a finished crawl.
func (m *Metrics) ObserveCrawl(pages int, d time.Duration) {
	if m == nil {
		return
	}
	m.PagesCrawled.Add(float64(pages))
	m.CrawlDuration.Observe(d.Seconds())
}

// ObserveEmbedding records one embedding call.
func (m *Metrics) ObserveEmbedding(d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingDuration.Observe(d.Seconds())
}

// Document records the result of processing one document: "persisted",
// "skipped" or "failed".
func (m *Metrics) Document(result string, fragments int) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(result).Inc()
	if fragments > 0 {
		m.Fragments.Add(float64(fragments))
	}
}

// Quota records a quota decision.
func (m *Metrics) Quota(allowed bool, plan string) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.QuotaDecisions.WithLabelValues(result, plan).Inc()
}
