// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BacklinkUpdates counts backlink set mutations by operation and outcome.
	BacklinkUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weave",
		Subsystem: "backlinks",
		Name:      "updates_total",
		Help:      "Backlink set mutations by operation (add, remove, purge) and outcome (ok, error).",
	}, []string{"op", "outcome"})

	// UnresolvedLinks counts link titles that matched no note when a diff was
	// applied.
	UnresolvedLinks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weave",
		Subsystem: "backlinks",
		Name:      "unresolved_total",
		Help:      "Added link titles that did not resolve to a note.",
	})

	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "weave",
		Subsystem: "graph",
		Name:      "build_duration_seconds",
		Help:      "Time to build, summarize and lay out a graph.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "weave",
		Subsystem: "graph",
		Name:      "last_nodes",
		Help:      "Node count of the most recent graph read.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "weave",
		Subsystem: "graph",
		Name:      "last_edges",
		Help:      "Edge count of the most recent graph read.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weave",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route template, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weave",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
