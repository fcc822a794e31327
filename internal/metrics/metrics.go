package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track RPC and resolver volume
var (
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexops_rpc_requests_total",
			Help: "Total number of JSON-RPC requests by method",
		},
		[]string{"method"},
	)

	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexops_rpc_errors_total",
			Help: "Total number of failed JSON-RPC requests by method",
		},
		[]string{"method"},
	)

	DictionaryReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexops_dictionary_reads_total",
		Help: "Total number of dictionary storage reads",
	})

	DictionaryMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexops_dictionary_misses_total",
		Help: "Total number of dictionary reads that found no entry",
	})

	PairLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexops_pair_lookups_total",
		Help: "Total number of pair registry lookups",
	})
)

// Deployment metrics - Track orchestrator progress
var (
	DeploysSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexops_deploys_submitted_total",
		Help: "Total number of install/init deploys submitted",
	})

	FinalityPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexops_finality_polls_total",
		Help: "Total number of deploy status polls",
	})

	DeploymentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexops_deployments_completed_total",
			Help: "Total number of contract deployment steps by terminal status",
		},
		[]string{"status"},
	)
)

// Performance metrics - Track request latency
var (
	RPCRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexops_rpc_request_duration_seconds",
		Help:    "Time taken for one JSON-RPC round trip",
		Buckets: prometheus.DefBuckets,
	})
)
