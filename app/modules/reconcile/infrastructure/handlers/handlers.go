// Package reconcilehandlers adapts bus messages to the reconcile service.
package reconcilehandlers

import (
	"log/slog"

	reconcileservice "github.com/pugscord/pugbot/app/modules/reconcile/application"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/pugscord/pugbot/internal/utils"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ReconcileHandlers handles reconcile-related events.
type ReconcileHandlers struct {
	service reconcileservice.Service
	logger  *slog.Logger
}

// NewReconcileHandlers creates a new ReconcileHandlers.
func NewReconcileHandlers(service reconcileservice.Service, logger *slog.Logger) Handlers {
	return &ReconcileHandlers{service: service, logger: logger}
}

// HandlePickupMatchStarted enters a started pickup into the pipeline. Returns
// no outgoing messages; everything downstream is sweep-driven.
func (h *ReconcileHandlers) HandlePickupMatchStarted(msg *message.Message) ([]*message.Message, error) {
	ctx := msg.Context()

	payload, err := utils.UnmarshalPayload[sharedevents.PickupMatchStartedPayloadV1](msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "discarding undecodable pickup event",
			attr.String("message_id", msg.UUID),
			attr.Error(err),
		)
		// Poison message; retrying cannot fix it.
		return nil, nil
	}

	h.logger.InfoContext(ctx, "pickup started event received",
		attr.CorrelationIDFromMsg(msg),
		attr.GuildID("guild_id", payload.GuildID),
	)

	if err := h.service.TrackMatch(ctx, *payload); err != nil {
		return nil, err
	}
	return nil, nil
}
