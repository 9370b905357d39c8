package stateroot

import "github.com/prometheus/client_golang/prometheus"

// rootIndex prometheus metric.
var rootIndex = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Help:      "Journal index of the current main trie root",
		Name:      "current_root_index",
		Namespace: "assetstate",
	},
)

func init() {
	prometheus.MustRegister(rootIndex)
}

func updateRootIndexMetric(index uint32) {
	rootIndex.Set(float64(index))
}
