// Package telemetry exports Prometheus metrics for the moderation bot.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all bot Prometheus metrics.
type Metrics struct {
	// Streaming/scoring metrics
	CommentsScored  prometheus.Counter
	CommentsSkipped *prometheus.CounterVec
	ScoreDuration   prometheus.Histogram
	RulesFired      *prometheus.CounterVec
	ActionsApplied  *prometheus.CounterVec
	ActionFailures  prometheus.Counter

	// Reconciliation metrics
	BatchesFlushed     *prometheus.CounterVec
	BatchSize          prometheus.Histogram
	RecordsReconciled  prometheus.Counter
	ReconcileAnomalies *prometheus.CounterVec
	ReconcileWait      prometheus.Histogram
}

// Provider wraps the metrics registry for the bot.
type Provider struct {
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics.
func NewProvider() *Provider {
	return &Provider{Metrics: initMetrics()}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}

	m.CommentsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_comments_scored_total",
		Help: "Comments successfully scored against the classification API",
	})
	m.CommentsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_comments_skipped_total",
		Help: "Comments skipped, by reason (too_long, duplicate, score_error, eval_error)",
	}, []string{"reason"})
	m.ScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modbot_score_duration_seconds",
		Help:    "Latency of scoring API calls including quota retries",
		Buckets: prometheus.DefBuckets,
	})
	m.RulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_rules_fired_total",
		Help: "Rule firings by rule name",
	}, []string{"rule"})
	m.ActionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_actions_applied_total",
		Help: "Moderation actions applied by action kind",
	}, []string{"action"})
	m.ActionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_action_failures_total",
		Help: "Moderation action attempts that failed",
	})

	m.BatchesFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_recon_batches_flushed_total",
		Help: "Reconciliation batches flushed, by trigger (size, delay, drain)",
	}, []string{"trigger"})
	m.BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modbot_recon_batch_size",
		Help:    "Records per flushed reconciliation batch",
		Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
	})
	m.RecordsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_recon_records_total",
		Help: "Records written to the reconciled output log",
	})
	m.ReconcileAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modbot_recon_anomalies_total",
		Help: "Status-merge anomalies by kind (unexpected_id, missing_status)",
	}, []string{"kind"})
	m.ReconcileWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modbot_recon_wait_seconds",
		Help:    "Time spent waiting for batches to become safe to reconcile",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	return m
}

// ObserveScore records one scoring call's duration.
func (m *Metrics) ObserveScore(d time.Duration) {
	m.ScoreDuration.Observe(d.Seconds())
}
