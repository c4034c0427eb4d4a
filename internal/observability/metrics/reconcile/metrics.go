// Package reconcilemetrics defines the metrics surface of the reconciliation
// module with a prometheus-backed implementation and a NoOp for tests.
package reconcilemetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records pipeline activity. Every sweep and state
// transition goes through here so dashboards see the pipeline without log
// scraping.
type ReconcileMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
	RecordMatchTracked(ctx context.Context)
	RecordMatchQueued(ctx context.Context)
	RecordMatchCompleted(ctx context.Context, forced bool)
	RecordMatchFailed(ctx context.Context)
	RecordCandidateRejected(ctx context.Context, reason string)
}

type prometheusMetrics struct {
	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	tracked    prometheus.Counter
	queued     prometheus.Counter
	completed  *prometheus.CounterVec
	failed     prometheus.Counter
	rejections *prometheus.CounterVec
}

// NewPrometheusMetrics registers the reconcile metric family on the given
// registry.
func NewPrometheusMetrics(reg prometheus.Registerer) ReconcileMetrics {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_reconcile_operation_attempts_total",
			Help: "Reconcile operations started.",
		}, []string{"operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_reconcile_operation_successes_total",
			Help: "Reconcile operations finished without error.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_reconcile_operation_failures_total",
			Help: "Reconcile operations finished with error.",
		}, []string{"operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pugbot_reconcile_operation_duration_seconds",
			Help:    "Reconcile operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		tracked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pugbot_reconcile_matches_tracked_total",
			Help: "Pending matches entered into the pipeline.",
		}),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pugbot_reconcile_matches_queued_total",
			Help: "Pending matches bound to a record.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_reconcile_matches_completed_total",
			Help: "Matches confirmed complete, split by whether the queue ceiling forced them.",
		}, []string{"forced"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pugbot_reconcile_matches_failed_total",
			Help: "Matches retired without a matching record.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_reconcile_candidates_rejected_total",
			Help: "Candidate records rejected during matching.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.durations,
		m.tracked, m.queued, m.completed, m.failed, m.rejections)
	return m
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, op string) {
	m.attempts.WithLabelValues(op).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, op string) {
	m.successes.WithLabelValues(op).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, op string) {
	m.failures.WithLabelValues(op).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, op string, d time.Duration) {
	m.durations.WithLabelValues(op).Observe(d.Seconds())
}

func (m *prometheusMetrics) RecordMatchTracked(_ context.Context) { m.tracked.Inc() }

func (m *prometheusMetrics) RecordMatchQueued(_ context.Context) { m.queued.Inc() }

func (m *prometheusMetrics) RecordMatchCompleted(_ context.Context, forced bool) {
	if forced {
		m.completed.WithLabelValues("true").Inc()
	} else {
		m.completed.WithLabelValues("false").Inc()
	}
}

func (m *prometheusMetrics) RecordMatchFailed(_ context.Context) { m.failed.Inc() }

func (m *prometheusMetrics) RecordCandidateRejected(_ context.Context, reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// NoOpMetrics satisfies ReconcileMetrics for tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordMatchTracked(context.Context)                             {}
func (NoOpMetrics) RecordMatchQueued(context.Context)                              {}
func (NoOpMetrics) RecordMatchCompleted(context.Context, bool)                     {}
func (NoOpMetrics) RecordMatchFailed(context.Context)                              {}
func (NoOpMetrics) RecordCandidateRejected(context.Context, string)                {}
