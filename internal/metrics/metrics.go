// Package metrics exposes Prometheus collectors for the playlist pipeline
// and the logo cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LogoCacheHits counts logo lookups served from the cache.
	LogoCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gzplayer_logo_cache_hits_total",
		Help: "Number of logo lookups served from the cache",
	})

	// LogoCacheMisses counts logo lookups that required a fetch.
	LogoCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gzplayer_logo_cache_misses_total",
		Help: "Number of logo lookups that required an upstream fetch",
	})

	// LogoCacheEvictions counts entries evicted for space.
	LogoCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gzplayer_logo_cache_evictions_total",
		Help: "Number of logo cache entries evicted to reclaim space",
	})

	// LogoCacheExpired counts entries purged by expiry sweeps.
	LogoCacheExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gzplayer_logo_cache_expired_total",
		Help: "Number of logo cache entries purged after exceeding their TTL",
	})

	// LogoFetchErrors counts failed logo fetches by cause.
	LogoFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gzplayer_logo_fetch_errors_total",
		Help: "Number of failed logo fetches by cause",
	}, []string{"cause"})

	// LogoCacheItems tracks the number of resident cache entries.
	LogoCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gzplayer_logo_cache_items",
		Help: "Number of resident logo cache entries",
	})

	// LogoCacheBytes tracks the aggregate size of resident cache entries.
	LogoCacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gzplayer_logo_cache_bytes",
		Help: "Aggregate size in bytes of resident logo cache entries",
	})

	// PlaylistLoads counts playlist load runs by result.
	PlaylistLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gzplayer_playlist_loads_total",
		Help: "Number of playlist load runs by result (success, error, cancelled)",
	}, []string{"result"})

	// CatalogItems tracks the committed catalog size per item kind.
	CatalogItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gzplayer_catalog_items",
		Help: "Number of items in the committed catalog per kind",
	}, []string{"kind"})
)
