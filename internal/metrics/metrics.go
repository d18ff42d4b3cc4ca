// Package metrics exposes the node's process-wide Prometheus gauges and
// counters, adapted from the teacher's pool-facing metrics to the ledger
// and mempool concepts this node tracks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blocana",
		Name:      "chain_height",
		Help:      "Height of the highest block stored on disk.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blocana",
		Name:      "peers_connected",
		Help:      "Number of connected P2P peers.",
	})

	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blocana",
		Name:      "mempool_size",
		Help:      "Number of transactions currently pooled.",
	})

	MempoolMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blocana",
		Name:      "mempool_memory_bytes",
		Help:      "Estimated memory usage of the mempool in bytes.",
	})

	BlocksProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocana",
		Name:      "blocks_produced_total",
		Help:      "Total blocks produced by this validator.",
	})

	TransactionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocana",
		Name:      "mempool_transactions_accepted_total",
		Help:      "Total transactions admitted to the mempool.",
	})

	TransactionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocana",
		Name:      "mempool_transactions_rejected_total",
		Help:      "Total transactions rejected by the mempool.",
	})

	BlockApplications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blocana",
		Name:      "block_applications_total",
		Help:      "Block application attempts by result.",
	}, []string{"result"})

	UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blocana",
		Name:      "uptime_seconds",
		Help:      "Node uptime in seconds.",
	})
)

func init() {
	prometheus.MustRegister(
		ChainHeight,
		PeersConnected,
		MempoolSize,
		MempoolMemoryBytes,
		BlocksProduced,
		TransactionsAccepted,
		TransactionsRejected,
		BlockApplications,
		UptimeSeconds,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
