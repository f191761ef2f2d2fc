// Package metrics holds the Prometheus collectors and rolling latency stats
// for conversions and preprocessing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doconv"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	conversions        *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	preprocessChunks   prometheus.Histogram
	preprocessTables   prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	jobs               *prometheus.CounterVec

	Stats *ConversionStats
}

func New(statsWindow time.Duration) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Document conversions by source format, target format and outcome.",
		}, []string{"from", "to", "status"}),
		conversionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting a document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"from", "to"}),
		preprocessChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "preprocess_chunks",
			Help:      "Chunks produced per preprocessed document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		preprocessTables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "preprocess_tables",
			Help:      "Tables located per preprocessed document.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Batch conversion jobs by final status.",
		}, []string{"status"}),
		Stats: NewConversionStats(statsWindow),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.conversions,
		m.conversionDuration,
		m.preprocessChunks,
		m.preprocessTables,
		m.httpRequests,
		m.jobs,
	)
	return m
}

// ObserveConversion records one conversion attempt.
func (m *Metrics) ObserveConversion(from, to string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.conversions.WithLabelValues(from, to, status).Inc()
	m.conversionDuration.WithLabelValues(from, to).Observe(d.Seconds())
	m.Stats.Record(from, to, d, err != nil)
}

// ObservePreprocess records the shape of one preprocessing result.
func (m *Metrics) ObservePreprocess(chunks, tables int) {
	m.preprocessChunks.Observe(float64(chunks))
	m.preprocessTables.Observe(float64(tables))
}

func (m *Metrics) ObserveRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveJob(status string) {
	m.jobs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
