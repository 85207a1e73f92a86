package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	RunCount        prometheus.Counter
	ScoredCount     prometheus.Counter
	SkippedExisting prometheus.Counter
	SkippedQuota    prometheus.Counter
	ErrorCount      prometheus.Counter
	QuotaHalts      prometheus.Counter
	WordsConsumed   prometheus.Counter
	ClassifierTime  prometheus.Histogram
	WordsRemaining  prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RunCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_run_count",
			Help: "Total number of ingestion runs started",
		}),
		ScoredCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_scored_count",
			Help: "Total number of emails scored by the classifier",
		}),
		SkippedExisting: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_skipped_existing_count",
			Help: "Total number of emails skipped because they already carried scores",
		}),
		SkippedQuota: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_skipped_quota_count",
			Help: "Total number of emails persisted without scores after classifier rate limits or errors",
		}),
		ErrorCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_error_count",
			Help: "Total number of per-email processing errors",
		}),
		QuotaHalts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_quota_halt_count",
			Help: "Total number of runs halted by the word quota circuit breaker",
		}),
		WordsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_scorer_words_consumed_total",
			Help: "Total word volume charged against the classifier quota",
		}),
		ClassifierTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_scorer_classifier_duration_seconds",
			Help:    "Time spent in classifier calls",
			Buckets: prometheus.DefBuckets,
		}),
		WordsRemaining: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_scorer_words_remaining",
			Help: "Words remaining under the current run's quota ceiling",
		}),
	}
}
