package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_ingest_dates_processed_total",
			Help: "Per-date pipeline outcomes",
		},
		[]string{"status"},
	)

	RacesCrawled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "race_ingest_races_crawled_total",
			Help: "Race pages successfully extracted",
		},
	)

	RaceExtractFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "race_ingest_race_extract_failures_total",
			Help: "Race pages skipped due to fetch or extraction failures",
		},
	)

	RowsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "race_ingest_rows_extracted_total",
			Help: "Race result rows produced by the crawler",
		},
	)

	RowsSaved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "race_ingest_rows_saved_total",
			Help: "Race result rows upserted into storage",
		},
	)

	CrawlDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "race_ingest_crawl_duration_seconds",
			Help:    "Duration of one date's crawl",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	AnalyzeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "race_ingest_analyze_duration_seconds",
			Help:    "Duration of one analytics pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_ingest_cache_hits_total",
			Help: "Stats cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_ingest_cache_misses_total",
			Help: "Stats cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(DatesProcessed)
	prometheus.MustRegister(RacesCrawled)
	prometheus.MustRegister(RaceExtractFailures)
	prometheus.MustRegister(RowsExtracted)
	prometheus.MustRegister(RowsSaved)
	prometheus.MustRegister(CrawlDuration)
	prometheus.MustRegister(AnalyzeDuration)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
