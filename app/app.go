// Package app assembles the process: storage, event bus, router, modules,
// and the admin API.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pugscord/pugbot/app/api"
	"github.com/pugscord/pugbot/app/modules/logclient"
	"github.com/pugscord/pugbot/app/modules/notify"
	"github.com/pugscord/pugbot/app/modules/rating"
	"github.com/pugscord/pugbot/app/modules/reconcile"
	userservice "github.com/pugscord/pugbot/app/modules/user/application"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/config"
	"github.com/pugscord/pugbot/db/bundb"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// App is the assembled process.
type App struct {
	Config *config.Config

	db        *bundb.DBService
	bus       *eventbus.JetStreamEventBus
	router    *message.Router
	reconcile *reconcile.Module
	rating    *rating.Module
	admin     *api.Server
	obs       *observability.Observability
}

// NewApp wires every component. Nothing starts running until Run.
func NewApp(ctx context.Context, cfg *config.Config, obs *observability.Observability) (*App, error) {
	db, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	bus, err := eventbus.New(ctx, cfg.NATS.URL, obs.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}

	for _, stream := range []string{
		sharedevents.PickupStreamName,
		sharedevents.MatchStreamName,
		sharedevents.RatingStreamName,
		sharedevents.DiscordStreamName,
	} {
		if err := bus.CreateStream(ctx, stream); err != nil {
			return nil, fmt.Errorf("failed to provision stream %s: %w", stream, err)
		}
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(obs.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
		}.Middleware,
	)

	logs := logclient.NewHTTPClient(cfg.LogService, obs.Logger)
	users := userservice.NewLookupService(db.UserDB)
	notifier := notify.NewEventBusNotifier(bus, obs.Logger)

	reconcileModule, err := reconcile.NewModule(
		ctx, cfg, obs, db.ReconcileDB, logs, db.GuildDB, users, notifier, bus, router,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile module: %w", err)
	}

	ratingModule, err := rating.NewModule(ctx, cfg, obs, db.RatingDB, db.GuildDB, notifier, bus, router)
	if err != nil {
		return nil, fmt.Errorf("failed to create rating module: %w", err)
	}

	admin := api.NewServer(cfg.Admin, ratingModule.Service, db.ReconcileDB, db.GuildDB, obs.Logger)

	return &App{
		Config:    cfg,
		db:        db,
		bus:       bus,
		router:    router,
		reconcile: reconcileModule,
		rating:    ratingModule,
		admin:     admin,
		obs:       obs,
	}, nil
}

// Run starts the router, modules, and admin API, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.router.Run(ctx); err != nil {
			a.obs.Logger.Error("router stopped", attr.Error(err))
		}
	}()

	// Handlers must be registered before Run, which they are; wait for the
	// router to be ready before sweeps can publish.
	select {
	case <-a.router.Running():
	case <-ctx.Done():
		return ctx.Err()
	}

	wg.Add(1)
	go a.reconcile.Run(ctx, &wg)
	wg.Add(1)
	go a.rating.Run(ctx, &wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.admin.Start(); err != nil {
			a.obs.Logger.Error("admin API stopped", attr.Error(err))
		}
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Close tears the process down in reverse dependency order.
func (a *App) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.admin.Shutdown(shutdownCtx); err != nil {
		a.obs.Logger.Error("admin API shutdown failed", attr.Error(err))
	}
	if err := a.reconcile.Close(); err != nil {
		a.obs.Logger.Error("reconcile module shutdown failed", attr.Error(err))
	}
	if err := a.rating.Close(); err != nil {
		a.obs.Logger.Error("rating module shutdown failed", attr.Error(err))
	}
	if err := a.router.Close(); err != nil {
		a.obs.Logger.Error("router shutdown failed", attr.Error(err))
	}
	if err := a.bus.Close(); err != nil {
		a.obs.Logger.Error("event bus shutdown failed", attr.Error(err))
	}
	return a.db.Close()
}
