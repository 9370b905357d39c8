package nodestore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node reads served from cache",
			Name:      "nodestore_cache_hits_total",
			Namespace: "assetstate",
		},
	)
	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of node reads that went to the storage",
			Name:      "nodestore_cache_misses_total",
			Namespace: "assetstate",
		},
	)
	nodeWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of nodes written to the storage",
			Name:      "nodestore_node_writes_total",
			Namespace: "assetstate",
		},
	)
)

func init() {
	prometheus.MustRegister(
		cacheHits,
		cacheMisses,
		nodeWrites,
	)
}
