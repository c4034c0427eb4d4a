// Package ratingservice owns the four-scope rating engine.
package ratingservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/observability/attr"
	ratingmetrics "github.com/pugscord/pugbot/internal/observability/metrics/rating"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RatingService implements Service.
type RatingService struct {
	repo     ratingdb.Repository
	guilds   sharedinterface.GuildConfigReader
	notifier sharedinterface.Notifier
	logger   *slog.Logger
	metrics  ratingmetrics.RatingMetrics
	tracer   trace.Tracer
	cfg      config.RatingConfig

	now func() time.Time
}

var _ Service = (*RatingService)(nil)

// NewRatingService creates a RatingService.
func NewRatingService(
	repo ratingdb.Repository,
	guilds sharedinterface.GuildConfigReader,
	notifier sharedinterface.Notifier,
	logger *slog.Logger,
	metrics ratingmetrics.RatingMetrics,
	tracer trace.Tracer,
	cfg config.RatingConfig,
) *RatingService {
	return &RatingService{
		repo:     repo,
		guilds:   guilds,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// withTelemetry wraps a service operation with tracing, metrics, and panic
// recovery.
func withTelemetry[T any](
	s *RatingService,
	ctx context.Context,
	operationName string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := s.now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, s.now().Sub(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "critical panic recovered",
				attr.String("operation", operationName),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "operation failed",
			attr.String("operation", operationName),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName)
	return result, nil
}
