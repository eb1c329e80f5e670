package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "modvault_query_latency_seconds",
		Help: "The latency of index queries",
	}, []string{"mode"})

	decodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modvault_constraint_decode_failures_total",
		Help: "The total number of constraint records that failed to decode",
	})
)

func init() {
	prometheus.MustRegister(queryLatency)
	prometheus.MustRegister(decodeFailures)
}
