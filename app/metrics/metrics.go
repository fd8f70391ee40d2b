package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	entries      *prometheus.CounterVec
	feedFetches  *prometheus.CounterVec
	feedDuration *prometheus.HistogramVec
	runDuration  prometheus.Histogram
	lastRun      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "news_harvest_entries_total",
			Help: "Feed entries processed, by source, category and outcome (saved, skipped, errored)",
		}, []string{"source", "category", "outcome"}),
		feedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "news_harvest_feed_fetches_total",
			Help: "Feed fetches, by source, category and result (success, error)",
		}, []string{"source", "category", "result"}),
		feedDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "news_harvest_feed_duration_seconds",
			Help:    "Time spent ingesting one feed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"source", "category"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "news_harvest_run_duration_seconds",
			Help:    "Time spent on one full ingestion run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "news_harvest_last_run_timestamp_seconds",
			Help: "Unix time the last ingestion run finished",
		}),
	}
}

func (m *Metrics) ObserveFeed(source, category string, saved, skipped, errored int, failed bool, duration time.Duration) {
	if m == nil {
		return
	}

	result := "success"
	if failed {
		result = "error"
	}
	m.feedFetches.WithLabelValues(source, category, result).Inc()
	m.feedDuration.WithLabelValues(source, category).Observe(duration.Seconds())

	m.entries.WithLabelValues(source, category, "saved").Add(float64(saved))
	m.entries.WithLabelValues(source, category, "skipped").Add(float64(skipped))
	m.entries.WithLabelValues(source, category, "errored").Add(float64(errored))
}

func (m *Metrics) ObserveRun(finishedAt time.Time, duration time.Duration) {
	if m == nil {
		return
	}

	m.runDuration.Observe(duration.Seconds())
	m.lastRun.Set(float64(finishedAt.Unix()))
}
