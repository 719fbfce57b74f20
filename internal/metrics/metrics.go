package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	// kind: habit, goal
	ItemsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_items_created_total",
			Help: "Total number of habits and goals created",
		},
		[]string{"kind"},
	)

	ItemsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_items_deleted_total",
			Help: "Total number of habits and goals deleted",
		},
		[]string{"kind"},
	)

	// done: true, false
	CompletionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_completions_recorded_total",
			Help: "Completion rows written, by resulting done flag",
		},
		[]string{"kind", "done"},
	)

	// result: hit, miss, error
	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_stats_cache_lookups_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"kind", "result"},
	)

	StatsComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_stats_compute_duration_seconds",
			Help:    "Time spent recomputing progress for one item",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"kind"},
	)
)

func RecordHTTPRequestDuration(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func IncrementItemsCreated(kind string) {
	ItemsCreated.WithLabelValues(kind).Inc()
}

func IncrementItemsDeleted(kind string) {
	ItemsDeleted.WithLabelValues(kind).Inc()
}

func RecordCompletion(kind string, done bool) {
	label := "false"
	if done {
		label = "true"
	}
	CompletionsRecorded.WithLabelValues(kind, label).Inc()
}

func RecordCacheLookup(kind, result string) {
	StatsCacheLookups.WithLabelValues(kind, result).Inc()
}

func RecordStatsCompute(kind string, duration time.Duration) {
	StatsComputeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
