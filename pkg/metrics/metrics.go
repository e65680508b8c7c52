package metrics

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/graph"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stakegraph"

var (
	// SolveDuration measures a single effective ownership solve.
	SolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "duration_seconds",
		Help:      "Duration of effective ownership solves in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"strategy"})

	SolveIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "iterations",
		Help:      "Fixed-point sweeps per solve",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"strategy"})

	// SolvesTotal counts solves by outcome: ok, not_converged or error.
	SolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "solves_total",
		Help:      "Total effective ownership solves",
	}, []string{"strategy", "outcome"})

	SkippedLabelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "skipped_labels_total",
		Help:      "Edges left out of a solve because their label is not a percentage",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	// ReportsTotal counts report jobs by final status.
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "total",
		Help:      "Total report jobs by status",
	}, []string{"status"})
)

// ObserveSolve records the outcome of one solve. res may be nil when err is
// set.
func ObserveSolve(strategy graph.Strategy, elapsed time.Duration, res *graph.Result, err error) {
	s := string(strategy)
	SolveDuration.WithLabelValues(s).Observe(elapsed.Seconds())

	switch {
	case err != nil:
		SolvesTotal.WithLabelValues(s, "error").Inc()
	case !res.Converged:
		SolvesTotal.WithLabelValues(s, "not_converged").Inc()
	default:
		SolvesTotal.WithLabelValues(s, "ok").Inc()
	}

	if res != nil && res.Iterations > 0 {
		SolveIterations.WithLabelValues(s).Observe(float64(res.Iterations))
	}
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
