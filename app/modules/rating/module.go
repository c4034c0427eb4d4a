// Package rating assembles the rating module.
package rating

import (
	"context"
	"fmt"
	"sync"

	ratingservice "github.com/pugscord/pugbot/app/modules/rating/application"
	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	ratingrouter "github.com/pugscord/pugbot/app/modules/rating/infrastructure/router"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability"
	ratingmetrics "github.com/pugscord/pugbot/internal/observability/metrics/rating"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Module is the rating module: service plus event subscriptions.
type Module struct {
	Service    ratingservice.Service
	Router     *ratingrouter.RatingRouter
	cancelFunc context.CancelFunc
}

// NewModule wires the rating module.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	repo ratingdb.Repository,
	guilds sharedinterface.GuildConfigReader,
	notifier sharedinterface.Notifier,
	bus eventbus.EventBus,
	router *message.Router,
) (*Module, error) {
	metrics := ratingmetrics.NewPrometheusMetrics(obs.Registry)
	tracer := obs.Tracer("rating")

	service := ratingservice.NewRatingService(repo, guilds, notifier, obs.Logger, metrics, tracer, cfg.Rating)

	moduleRouter := ratingrouter.NewRatingRouter(obs.Logger, router, bus, bus)
	if err := moduleRouter.Configure(ctx, service); err != nil {
		return nil, fmt.Errorf("failed to configure rating router: %w", err)
	}

	return &Module{Service: service, Router: moduleRouter}, nil
}

// Run blocks until the context is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()
	if wg != nil {
		defer wg.Done()
	}
	<-ctx.Done()
}

// Close stops the module's subscriptions.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
