package reconcileservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	"github.com/pugscord/pugbot/internal/observability/attr"
)

// TrackMatch enters a started pickup into the pipeline in the searching
// state. Pickups from guilds with reconciliation disabled are dropped here,
// at the door, so the sweeps never see them.
func (s *ReconcileService) TrackMatch(ctx context.Context, payload sharedevents.PickupMatchStartedPayloadV1) error {
	_, err := withTelemetry(s, ctx, "TrackMatch", func(ctx context.Context) (struct{}, error) {
		if len(payload.Participants) == 0 {
			return struct{}{}, fmt.Errorf("pickup for guild %s has no participants", payload.GuildID)
		}

		cfg, err := s.guilds.GetConfig(ctx, payload.GuildID)
		if err != nil {
			return struct{}{}, fmt.Errorf("guild config: %w", err)
		}
		if !cfg.Enabled {
			s.logger.InfoContext(ctx, "pickup dropped, reconciliation disabled for guild",
				attr.GuildID("guild_id", payload.GuildID),
			)
			return struct{}{}, nil
		}

		match := &reconciledb.PendingMatch{
			ID:           uuid.New(),
			GuildID:      payload.GuildID,
			Category:     payload.Category,
			ChannelID:    payload.ChannelID,
			Participants: payload.Participants,
			State:        reconciledb.StateSearching,
			CreatedAt:    payload.StartedAt.UTC(),
		}
		if match.CreatedAt.IsZero() {
			match.CreatedAt = s.now()
		}

		if err := s.repo.InsertPending(ctx, match); err != nil {
			return struct{}{}, fmt.Errorf("insert pending match: %w", err)
		}

		s.metrics.RecordMatchTracked(ctx)
		s.logger.InfoContext(ctx, "pickup tracked",
			attr.String("pending_id", match.ID.String()),
			attr.GuildID("guild_id", match.GuildID),
			attr.String("category", string(match.Category)),
			attr.Int("participants", len(match.Participants)),
		)
		return struct{}{}, nil
	})
	return err
}
