// Package metrics exposes Prometheus collectors for bulk writes.
//
// A Collector is registered on the Registerer it is created with, so tests
// and embedders can keep writes off the global registry:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(reg)
//	w, _ := bulk.NewWriter(t, cfg, bulk.WithMetrics(c))
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fastinsert"

// Collector groups the bulk write metrics.
type Collector struct {
	rowsWritten   *prometheus.CounterVec
	writes        *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec
}

// NewCollector creates and registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		// Labels: table
		rowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows reported as written by the bulk transport.",
		}, []string{"table"}),
		// Labels: table, status (success/failure)
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Bulk write calls by outcome.",
		}, []string{"table", "status"}),
		writeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Duration of bulk write calls.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"table"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "writes_in_flight",
			Help:      "Bulk write calls currently running.",
		}, []string{"table"}),
	}
}

// StartWrite marks a write on table as in flight and returns the function
// that records its outcome.
func (c *Collector) StartWrite(table string) func(rows int64, elapsed time.Duration, err error) {
	if c == nil {
		return func(int64, time.Duration, error) {}
	}
	c.inFlight.WithLabelValues(table).Inc()
	return func(rows int64, elapsed time.Duration, err error) {
		c.inFlight.WithLabelValues(table).Dec()
		c.rowsWritten.WithLabelValues(table).Add(float64(rows))
		c.writeDuration.WithLabelValues(table).Observe(elapsed.Seconds())
		status := "success"
		if err != nil {
			status = "failure"
		}
		c.writes.WithLabelValues(table, status).Inc()
	}
}
