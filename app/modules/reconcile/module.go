// Package reconcile assembles the match-record reconciliation module.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/pugscord/pugbot/app/modules/logclient"
	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	reconcilequeue "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/queue"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	reconcilerouter "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/router"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability"
	reconcilemetrics "github.com/pugscord/pugbot/internal/observability/metrics/reconcile"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Module is the reconcile module: service, event subscriptions, and sweep
// scheduler.
type Module struct {
	Service    reconcileservice.Service
	Router     *reconcilerouter.ReconcileRouter
	Queue      *reconcilequeue.Service
	cancelFunc context.CancelFunc
	obs        *observability.Observability
}

// NewModule wires the reconcile module.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	repo reconciledb.Repository,
	logs logclient.Client,
	guilds sharedinterface.GuildConfigReader,
	users sharedinterface.UserLookup,
	notifier sharedinterface.Notifier,
	bus eventbus.EventBus,
	router *message.Router,
) (*Module, error) {
	metrics := reconcilemetrics.NewPrometheusMetrics(obs.Registry)
	tracer := obs.Tracer("reconcile")

	service := reconcileservice.NewReconcileService(
		repo, logs, guilds, users, notifier, bus,
		obs.Logger, metrics, tracer, cfg.Reconciliation,
	)

	moduleRouter := reconcilerouter.NewReconcileRouter(obs.Logger, router, bus, bus)
	if err := moduleRouter.Configure(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to configure reconcile router: %w", err)
	}

	queue, err := reconcilequeue.NewService(ctx, cfg.Postgres.DSN, service, cfg.Reconciliation, obs.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile queue service: %w", err)
	}

	return &Module{
		Service: service,
		Router:  moduleRouter,
		Queue:   queue,
		obs:     obs,
	}, nil
}

// Run starts the sweep scheduler and blocks until the context is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()
	if wg != nil {
		defer wg.Done()
	}

	if err := m.Queue.Start(ctx); err != nil {
		m.obs.Logger.Error("reconcile sweep scheduler failed to start", "error", err)
		return
	}

	<-ctx.Done()
}

// Close stops the scheduler and subscriptions.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return m.Queue.Stop(context.Background())
}
