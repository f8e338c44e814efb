// Package metrics exposes the chain manager's Prometheus counters and
// gauges (SPEC_FULL.md component L). The core itself stays free of metrics
// calls in its pure functions (component A, C); the orchestrator records
// these at its mailbox boundary instead, the same seam the teacher's
// miner/ counters sit at in work/worker.go.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BlocksConsolidated counts successful epoch promotions.
	BlocksConsolidated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poenode",
		Subsystem: "chain",
		Name:      "blocks_consolidated_total",
		Help:      "Total number of blocks promoted to canonical history.",
	})

	// BlocksRejected counts blocks the candidate arbiter refused, labeled
	// by the rejection rule.
	BlocksRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poenode",
		Subsystem: "chain",
		Name:      "blocks_rejected_total",
		Help:      "Total number of blocks rejected by the candidate arbiter, by rule.",
	}, []string{"rule"})

	// MempoolSize is the current count of pending transactions.
	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poenode",
		Subsystem: "chain",
		Name:      "mempool_size",
		Help:      "Current number of transactions awaiting inclusion.",
	})

	// UTXOSetSize is the current count of unspent outputs.
	UTXOSetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poenode",
		Subsystem: "chain",
		Name:      "utxo_set_size",
		Help:      "Current number of entries in the unspent-outputs pool.",
	})

	// DataRequestsInFlight is the current count of requests not yet
	// Finished, labeled by stage.
	DataRequestsInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "poenode",
		Subsystem: "datarequest",
		Name:      "in_flight",
		Help:      "Current number of data requests in each lifecycle stage.",
	}, []string{"stage"})

	// StorageFailures counts persist failures that spec.md §7 says are
	// logged and swallowed rather than retried.
	StorageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poenode",
		Subsystem: "storage",
		Name:      "persist_failures_total",
		Help:      "Total number of swallowed persistence failures, by target.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(
		BlocksConsolidated,
		BlocksRejected,
		MempoolSize,
		UTXOSetSize,
		DataRequestsInFlight,
		StorageFailures,
	)
}
