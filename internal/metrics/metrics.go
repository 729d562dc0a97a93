package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media index metrics
var (
	IndexQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagepick_index_queries_total",
			Help: "Total number of media index queries",
		},
		[]string{"operation", "status"},
	)

	IndexQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagepick_index_query_duration_seconds",
			Help:    "Media index query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_scan_runs_total",
			Help: "Total number of index scan runs",
		},
	)

	ScanFilesIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_scan_files_indexed_total",
			Help: "Total number of files added or updated by the scanner",
		},
	)

	ScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_scan_errors_total",
			Help: "Total number of scanner errors",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagepick_scan_last_run_duration_seconds",
			Help: "Duration of the last index scan in seconds",
		},
	)
)

// Catalog snapshot metrics
var (
	SnapshotRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_snapshot_refresh_total",
			Help: "Total number of full-index snapshot queries issued",
		},
	)

	SnapshotCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_snapshot_coalesced_total",
			Help: "Total number of snapshot requests coalesced into an in-flight query",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_thumb_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_thumb_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagepick_thumb_cache_evictions_total",
			Help: "Total number of thumbnail cache evictions",
		},
	)

	ThumbCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagepick_thumb_cache_bytes",
			Help: "Current weight of the thumbnail cache in bytes",
		},
	)

	ThumbDecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagepick_thumb_decode_total",
			Help: "Total number of thumbnail decode attempts by path",
		},
		[]string{"path", "status"}, // path: "native", "sampled", "software"
	)
)

// Picker session metrics
var (
	SessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagepick_sessions_open",
			Help: "Number of currently open picker sessions",
		},
	)

	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagepick_session_events_total",
			Help: "Total number of picker session events processed",
		},
		[]string{"event"},
	)
)

// HTTP metrics for the demo host
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagepick_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagepick_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagepick_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)
