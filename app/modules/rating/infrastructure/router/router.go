// Package ratingrouter wires rating handlers onto the shared watermill
// router.
package ratingrouter

import (
	"context"
	"fmt"
	"log/slog"

	ratingservice "github.com/pugscord/pugbot/app/modules/rating/application"
	ratinghandlers "github.com/pugscord/pugbot/app/modules/rating/infrastructure/handlers"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RatingRouter owns the rating module's subscriptions.
type RatingRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
}

// NewRatingRouter creates a RatingRouter.
func NewRatingRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
) *RatingRouter {
	return &RatingRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
		publisher:  publisher,
	}
}

// Configure registers the module's handlers on the shared router. Middleware
// is app-level; modules only add handlers.
func (r *RatingRouter) Configure(ctx context.Context, service ratingservice.Service) error {
	handlers := ratinghandlers.NewRatingHandlers(service, r.logger)
	return r.registerHandlers(ctx, handlers)
}

func (r *RatingRouter) registerHandlers(ctx context.Context, handlers ratinghandlers.Handlers) error {
	eventsToHandlers := map[string]func(*message.Message) ([]*message.Message, error){
		sharedevents.MatchCompletedV1: handlers.HandleMatchCompleted,
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("rating.%s", topic)
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
func (r *RatingRouter) Close() error {
	return r.router.Close()
}
