package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts entity cache reads that found a value, by kind.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_cache_hits_total",
		Help: "Total entity cache hits by entity kind",
	}, []string{"kind"})

	// CacheMisses counts entity cache reads that found nothing, by kind.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_cache_misses_total",
		Help: "Total entity cache misses by entity kind",
	}, []string{"kind"})

	// FetchJoins counts callers that joined an in-flight load instead of
	// issuing their own remote request.
	FetchJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_cache_fetch_joins_total",
		Help: "Total deduplicated loads joined to an in-flight request",
	}, []string{"kind"})

	// CacheEvictions counts reference-counted evictions by kind.
	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_cache_evictions_total",
		Help: "Total entity cache evictions by entity kind",
	}, []string{"kind"})

	// OptimisticRollbacks counts optimistic mutations reverted after a
	// failed remote write.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_optimistic_rollbacks_total",
		Help: "Total optimistic mutations rolled back by mutation type",
	}, []string{"mutation"})

	// StreamBatches counts change-stream batches applied by collection.
	StreamBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_stream_batches_total",
		Help: "Total change batches applied by collection",
	}, []string{"collection"})

	// StreamErrors counts scope-level subscription failures by collection.
	StreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitspo_stream_errors_total",
		Help: "Total change stream failures by collection",
	}, []string{"collection"})
)
