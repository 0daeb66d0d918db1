// Package observability provides domain metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikeToggles counts like toggles by identity kind and resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopagg_like_toggles_total",
		Help: "Total number of like toggles by identity kind and resulting state",
	}, []string{"identity", "state"})

	// LikeConflicts counts inserts that hit the (user, product) unique constraint.
	LikeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagg_like_conflicts_total",
		Help: "Total number of like inserts resolved as already liked",
	})

	// LikeMerges counts anonymous likes persisted on login.
	LikeMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopagg_like_merges_total",
		Help: "Anonymous session likes processed during login merge by outcome",
	}, []string{"outcome"})

	// DiscoveryResults records the filtered result size per listing scope.
	DiscoveryResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopagg_discovery_results",
		Help:    "Number of products matching a discovery request before paging",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"scope", "search"})

	// DatabaseQueryLatency records catalog query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopagg_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
