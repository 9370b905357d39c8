package dataasset

import "github.com/prometheus/client_golang/prometheus"

// Metrics for monitoring service.
var (
	assetsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of registered data assets",
			Name:      "assets_registered_total",
			Namespace: "assetstate",
		},
	)
	certificatesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of issued certificates",
			Name:      "certificates_issued_total",
			Namespace: "assetstate",
		},
	)
	mainRootUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of main trie root changes",
			Name:      "main_root_updates_total",
			Namespace: "assetstate",
		},
	)
)

func init() {
	prometheus.MustRegister(
		assetsRegistered,
		certificatesIssued,
		mainRootUpdates,
	)
}
