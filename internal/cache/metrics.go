package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modvault_cache_hits_total",
		Help: "The total number of cache hits",
	}, []string{"cache"})

	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modvault_cache_misses_total",
		Help: "The total number of cache misses",
	}, []string{"cache"})

	cacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modvault_cache_evictions_total",
		Help: "The total number of cache evictions",
	}, []string{"cache"})
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(cacheEvictions)
}
