// Package metrics defines the Prometheus collectors for family graph
// operations.
//
// Collectors are registered on the registerer passed to New, so tests and
// embedders can use a private registry instead of the global one.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AndrivA89/family-graph/internal/domain"
)

const namespace = "familygraph"

type Metrics struct {
	// OperationsTotal counts engine operations.
	// Labels: operation (add_member, build_tree, ...), outcome (ok, not_found, ...)
	OperationsTotal *prometheus.CounterVec

	// OperationDuration measures operation latency in seconds.
	// Labels: operation
	OperationDuration *prometheus.HistogramVec

	// TreeSize observes member counts of trees passed to the algorithms.
	// Labels: operation
	TreeSize *prometheus.HistogramVec

	// PathLength observes connection path lengths, 0 when unconnected.
	PathLength prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of engine operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Engine operation latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
		TreeSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tree_members",
				Help:      "Number of members in trees processed by the graph algorithms",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"operation"},
		),
		PathLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connection_path_length",
				Help:      "Members on connection paths found by the connection finder",
				Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.OperationsTotal, m.OperationDuration, m.TreeSize, m.PathLength)
	}
	return m
}

// Observe records one finished operation. Safe on a nil receiver.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveTreeSize(operation string, members int) {
	if m == nil {
		return
	}
	m.TreeSize.WithLabelValues(operation).Observe(float64(members))
}

func (m *Metrics) ObservePathLength(n int) {
	if m == nil {
		return
	}
	m.PathLength.Observe(float64(n))
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, domain.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, domain.ErrCycle):
		return "cycle"
	case errors.Is(err, domain.ErrWriteFailed):
		return "write_failed"
	default:
		return "error"
	}
}
