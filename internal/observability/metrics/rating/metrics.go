// Package ratingmetrics defines the rating module's metrics surface.
package ratingmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type RatingMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
	RecordMatchApplied(ctx context.Context, scopes int)
	RecordDuplicateApplication(ctx context.Context)
	RecordDelta(ctx context.Context, scope string, delta int)
}

type prometheusMetrics struct {
	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	applied    prometheus.Counter
	duplicates prometheus.Counter
	deltas     *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the rating metric family on the given
// registry.
func NewPrometheusMetrics(reg prometheus.Registerer) RatingMetrics {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_rating_operation_attempts_total",
			Help: "Rating operations started.",
		}, []string{"operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_rating_operation_successes_total",
			Help: "Rating operations finished without error.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pugbot_rating_operation_failures_total",
			Help: "Rating operations finished with error.",
		}, []string{"operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pugbot_rating_operation_duration_seconds",
			Help:    "Rating operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pugbot_rating_matches_applied_total",
			Help: "Confirmed matches applied to the rating tables.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pugbot_rating_duplicate_applications_total",
			Help: "ApplyMatch calls rejected because the record was already applied.",
		}),
		deltas: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pugbot_rating_delta",
			Help:    "Signed per-player rating deltas.",
			Buckets: []float64{-48, -32, -16, -8, 0, 8, 16, 32, 48},
		}, []string{"scope"}),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.durations,
		m.applied, m.duplicates, m.deltas)
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

func (m *prometheusMetrics) RecordMatchApplied(_ context.Context, _ int) { m.applied.Inc() }

func (m *prometheusMetrics) RecordDuplicateApplication(_ context.Context) { m.duplicates.Inc() }

func (m *prometheusMetrics) RecordDelta(_ context.Context, scope string, delta int) {
	m.deltas.WithLabelValues(scope).Observe(float64(delta))
}

// NoOpMetrics satisfies RatingMetrics for tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordMatchApplied(context.Context, int)                        {}
func (NoOpMetrics) RecordDuplicateApplication(context.Context)                     {}
func (NoOpMetrics) RecordDelta(context.Context, string, int)                       {}
