// Package ratinghandlers adapts bus messages to the rating service.
package ratinghandlers

import (
	"errors"
	"log/slog"

	ratingservice "github.com/pugscord/pugbot/app/modules/rating/application"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/pugscord/pugbot/internal/utils"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RatingHandlers handles rating-related events.
type RatingHandlers struct {
	service ratingservice.Service
	logger  *slog.Logger
}

// NewRatingHandlers creates a new RatingHandlers.
func NewRatingHandlers(service ratingservice.Service, logger *slog.Logger) Handlers {
	return &RatingHandlers{service: service, logger: logger}
}

// HandleMatchCompleted applies one confirmed match to the rating tables and
// announces the resulting deltas. Redeliveries are acknowledged without a
// second application.
func (h *RatingHandlers) HandleMatchCompleted(msg *message.Message) ([]*message.Message, error) {
	ctx := msg.Context()

	payload, err := utils.UnmarshalPayload[sharedevents.MatchCompletedPayloadV1](msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "discarding undecodable completion event",
			attr.String("message_id", msg.UUID),
			attr.Error(err),
		)
		return nil, nil
	}

	result, err := h.service.ApplyMatch(ctx, *payload)
	if err != nil {
		if errors.Is(err, ratingservice.ErrDuplicateApplication) {
			h.logger.InfoContext(ctx, "completion event redelivered, record already applied",
				attr.RecordID("record_id", payload.RecordID),
			)
			return nil, nil
		}
		return nil, err
	}

	out, err := utils.NewResultMessage(msg, result)
	if err != nil {
		return nil, err
	}
	out.Metadata.Set("topic", sharedevents.RatingUpdatedV1)
	return []*message.Message{out}, nil
}
