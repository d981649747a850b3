package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "virtualmod_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "virtualmod_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ClassificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "virtualmod_classification_seconds",
		Help:    "Time spent resolving and classifying a single import edge.",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
	})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_files_analyzed_total",
		Help: "Total number of source files analyzed.",
	})

	FileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtualmod_file_errors_total",
		Help: "Total number of files whose analysis was aborted, by error code.",
	}, []string{"code"})

	EdgesClassifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_edges_classified_total",
		Help: "Total number of import/export edges classified.",
	})

	ExternalEdgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_external_edges_total",
		Help: "Total number of edges skipped because they target a runtime builtin.",
	})

	// Set from the whole report, so watch-mode patches never double count.
	LastRunViolationsByKind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "virtualmod_last_run_violations_by_kind",
		Help: "Number of violations in the most recent report, by kind.",
	}, []string{"kind"})

	RootCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_root_cache_hits_total",
		Help: "Total number of memoized project/module root lookups served from cache.",
	})

	RootCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_root_cache_misses_total",
		Help: "Total number of project/module root lookups that walked the filesystem.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchRunsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_watch_runs_throttled_total",
		Help: "Total number of watch-mode re-analysis runs delayed by the rate limiter.",
	})

	WatchChangesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "virtualmod_watch_changes_dropped_total",
		Help: "Total number of changed paths dropped because the change queue was full.",
	})

	LastRunViolations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "virtualmod_last_run_violations",
		Help: "Number of violations found by the most recent run.",
	})
)
