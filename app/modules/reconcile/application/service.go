// Package reconcileservice owns the match-record reconciliation pipeline:
// tracking observed pickups, binding them to finished records on the logs
// service, and confirming completion.
package reconcileservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pugscord/pugbot/app/modules/logclient"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability/attr"
	reconcilemetrics "github.com/pugscord/pugbot/internal/observability/metrics/reconcile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReconcileService implements Service.
type ReconcileService struct {
	repo     reconciledb.Repository
	logs     logclient.Client
	guilds   sharedinterface.GuildConfigReader
	users    sharedinterface.UserLookup
	notifier sharedinterface.Notifier
	bus      eventbus.EventBus
	logger   *slog.Logger
	metrics  reconcilemetrics.ReconcileMetrics
	tracer   trace.Tracer
	cfg      config.ReconciliationConfig
	policy   *CompletionPolicy

	// now is swappable so horizon and ceiling rules are testable.
	now func() time.Time
}

var _ Service = (*ReconcileService)(nil)

// NewReconcileService creates a ReconcileService.
func NewReconcileService(
	repo reconciledb.Repository,
	logs logclient.Client,
	guilds sharedinterface.GuildConfigReader,
	users sharedinterface.UserLookup,
	notifier sharedinterface.Notifier,
	bus eventbus.EventBus,
	logger *slog.Logger,
	metrics reconcilemetrics.ReconcileMetrics,
	tracer trace.Tracer,
	cfg config.ReconciliationConfig,
) *ReconcileService {
	return &ReconcileService{
		repo:     repo,
		logs:     logs,
		guilds:   guilds,
		users:    users,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		cfg:      cfg,
		policy:   NewCompletionPolicy(cfg.Completion),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// withTelemetry wraps a service operation with tracing, metrics, and panic
// recovery.
func withTelemetry[T any](
	s *ReconcileService,
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
