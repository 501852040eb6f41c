// Package metrics holds the Prometheus collectors for labeling runs.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry with the labeling collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	chunksProcessed *prometheus.CounterVec
	reportsLabeled  prometheus.Counter
	chunkDuration   prometheus.Histogram
	windowRuns      *prometheus.CounterVec
	labelValues     *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunksProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radlabel_chunks_processed_total",
				Help: "Total number of chunks run through the labeling pipeline",
			},
			[]string{"status"},
		),
		reportsLabeled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radlabel_reports_labeled_total",
			Help: "Total number of reports that received a label vector",
		}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radlabel_chunk_duration_seconds",
			Help:    "Time taken to normalize, split, extract, classify and aggregate one chunk",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		windowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radlabel_window_runs_total",
				Help: "Total number of window runs by final status",
			},
			[]string{"status"},
		),
		labelValues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radlabel_label_values_total",
				Help: "Label outcomes written, by category and label",
			},
			[]string{"category", "label"},
		),
	}
	m.registry.MustRegister(m.chunksProcessed, m.reportsLabeled, m.chunkDuration, m.windowRuns, m.labelValues)
	return m
}

// Registry exposes the underlying registry, e.g. to add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveChunk records one chunk attempt.
func (m *Metrics) ObserveChunk(reports int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.reportsLabeled.Add(float64(reports))
	}
	m.chunksProcessed.WithLabelValues(status).Inc()
	m.chunkDuration.Observe(elapsed.Seconds())
}

// ObserveWindowRun records the final status of a window run.
func (m *Metrics) ObserveWindowRun(status string) {
	if m == nil {
		return
	}
	m.windowRuns.WithLabelValues(status).Inc()
}

// ObserveLabel counts one written label outcome.
func (m *Metrics) ObserveLabel(category, label string) {
	if m == nil {
		return
	}
	m.labelValues.WithLabelValues(category, label).Inc()
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry in text exposition format for the node-exporter textfile collector.
// The parent directory is created when missing.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
