// Package reconcilerouter wires reconcile handlers onto the shared watermill
// router.
package reconcilerouter

import (
	"context"
	"fmt"
	"log/slog"

	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	reconcilehandlers "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/handlers"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ReconcileRouter owns the reconcile module's subscriptions.
type ReconcileRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
}

// NewReconcileRouter creates a ReconcileRouter.
func NewReconcileRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
) *ReconcileRouter {
	return &ReconcileRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
	}
}

// Configure registers the module's handlers on the shared router. Middleware
// is app-level; modules only add handlers.
func (r *ReconcileRouter) Configure(ctx context.Context, service reconcileservice.Service) error {
	handlers := reconcilehandlers.NewReconcileHandlers(service, r.logger)
	return r.registerHandlers(ctx, handlers)
}

func (r *ReconcileRouter) registerHandlers(ctx context.Context, handlers reconcilehandlers.Handlers) error {
	eventsToHandlers := map[string]func(*message.Message) ([]*message.Message, error){
		sharedevents.PickupMatchStartedV1: handlers.HandlePickupMatchStarted,
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("reconcile.%s", topic)
		r.router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "error processing message",
						attr.String("message_id", msg.UUID),
						attr.Error(err),
					)
					return nil, err
				}
				for _, m := range messages {
					publishTopic := m.Metadata.Get("topic")
					if publishTopic == "" {
						r.logger.Error("no publish topic on outgoing message, dropping",
							attr.String("handler", handlerName),
							attr.String("msg_uuid", m.UUID),
						)
						continue
					}
					if err := r.publisher.Publish(publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

// Close shuts down the underlying router.
func (r *ReconcileRouter) Close() error {
	return r.router.Close()
}
