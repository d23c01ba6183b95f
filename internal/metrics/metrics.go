package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts executed queries by outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsql_queries_total",
			Help: "Total number of SQL queries executed",
		},
		[]string{"status"},
	)
	// QueryDuration is the end-to-end latency of query execution.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridsql_query_duration_seconds",
			Help:    "Query execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	// PartitionsVisited tracks how many partitions each query touched.
	PartitionsVisited = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridsql_query_partitions_visited",
			Help:    "Number of partitions visited per query",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)
	// SubRequestRetries counts partition sub-requests that needed a retry.
	SubRequestRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridsql_subrequest_retries_total",
			Help: "Total number of retried partition sub-requests",
		},
	)
)
