package assettrie

import "github.com/prometheus/client_golang/prometheus"

// Metrics for monitoring service.
var (
	freshBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of tries built from scratch",
			Name:      "trie_fresh_builds_total",
			Namespace: "assetstate",
		},
	)
	rebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of incremental updates replaced by a full rebuild",
			Name:      "trie_rebuilds_total",
			Namespace: "assetstate",
		},
	)
	prunedNodes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of nodes removed by the garbage collector",
			Name:      "trie_pruned_nodes_total",
			Namespace: "assetstate",
		},
	)
)

func init() {
	prometheus.MustRegister(
		freshBuilds,
		rebuilds,
		prunedNodes,
	)
}
