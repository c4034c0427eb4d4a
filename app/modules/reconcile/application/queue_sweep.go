package reconcileservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/pugscord/pugbot/app/modules/logclient"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/pugscord/pugbot/internal/utils"
)

// QueueSweep visits every queued match once: re-fetches its bound record and
// confirms completion when the record is finished, or forces completion when
// the match has sat queued past the ceiling. Transient fetch failures leave
// the match queued for the next tick.
func (s *ReconcileService) QueueSweep(ctx context.Context) (*SweepStats, error) {
	return withTelemetry(s, ctx, "QueueSweep", func(ctx context.Context) (*SweepStats, error) {
		matches, err := s.repo.ListByState(ctx, reconciledb.StateQueued)
		if err != nil {
			return nil, fmt.Errorf("list queued matches: %w", err)
		}

		stats := &SweepStats{Processed: len(matches)}
		for i := range matches {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			s.queueOne(ctx, &matches[i], stats)
		}

		if stats.Processed > 0 {
			s.logger.InfoContext(ctx, "queue sweep finished",
				attr.Int("processed", stats.Processed),
				attr.Int("completed", stats.Completed),
				attr.Int("failed", stats.Failed),
				attr.Int("skipped", stats.Skipped),
			)
		}
		return stats, nil
	})
}

func (s *ReconcileService) queueOne(ctx context.Context, match *reconciledb.PendingMatch, stats *SweepStats) {
	if match.RecordID == nil {
		// A queued row without a record binding is corrupt; fail it rather
		// than resweep it forever.
		s.failMatch(ctx, match, "queued without a bound record")
		stats.Failed++
		return
	}
	recordID := *match.RecordID

	rec, err := s.logs.FetchByID(ctx, recordID)
	if err != nil {
		switch {
		case errors.Is(err, logclient.ErrNotFound), errors.Is(err, logclient.ErrInvalidRecord):
			// The bound record is gone for good. Release the claim so the
			// id is not held by a dead binding, then fail the match.
			if relErr := s.repo.ReleaseClaim(ctx, recordID); relErr != nil {
				s.logger.ErrorContext(ctx, "claim release failed",
					attr.RecordID("record_id", recordID),
					attr.Error(relErr),
				)
			}
			s.failMatch(ctx, match, fmt.Sprintf("bound record %d became unavailable", recordID))
			stats.Failed++
		default:
			s.logger.WarnContext(ctx, "record re-fetch failed, retrying next sweep",
				attr.String("pending_id", match.ID.String()),
				attr.RecordID("record_id", recordID),
				attr.Error(err),
			)
			stats.Skipped++
		}
		return
	}

	forced := false
	if !s.policy.IsComplete(rec) {
		queuedAt := match.CreatedAt
		if match.QueuedAt != nil {
			queuedAt = *match.QueuedAt
		}
		if s.now().Sub(queuedAt) < s.cfg.QueueCeiling {
			stats.Skipped++
			return
		}
		// Past the ceiling the record is taken as-is. Whatever scoreline it
		// holds is the best answer this match will ever get.
		forced = true
	}

	if err := s.completeMatch(ctx, match, rec, forced); err != nil {
		s.logger.ErrorContext(ctx, "completion failed, retrying next sweep",
			attr.String("pending_id", match.ID.String()),
			attr.RecordID("record_id", recordID),
			attr.Error(err),
		)
		stats.Skipped++
		return
	}
	stats.Completed++
}

// completeMatch performs the queued -> completed transition. Order matters:
// the confirmed row is written before the event so a consumer can always read
// what the event announces, and the state transition comes last so a crash
// mid-sequence is retried (the confirmed insert and the rating engine are
// both idempotent on record id).
func (s *ReconcileService) completeMatch(ctx context.Context, match *reconciledb.PendingMatch, rec *logclient.Record, forced bool) error {
	players, err := s.buildPlayerResults(ctx, rec)
	if err != nil {
		return fmt.Errorf("resolve players: %w", err)
	}

	confirmed := &reconciledb.ConfirmedMatch{
		PendingID:   match.ID,
		GuildID:     match.GuildID,
		Category:    match.Category,
		ChannelID:   match.ChannelID,
		RecordID:    rec.ID,
		Map:         rec.Map,
		RedScore:    rec.RedScore,
		BlueScore:   rec.BlueScore,
		Duration:    rec.Duration,
		Players:     players,
		Forced:      forced,
		StartedAt:   rec.StartedAt,
		CompletedAt: s.now(),
	}

	inserted, err := s.repo.InsertConfirmed(ctx, confirmed)
	if err != nil {
		return fmt.Errorf("insert confirmed match: %w", err)
	}
	if !inserted {
		// A previous attempt crashed after the insert. Resume from there.
		s.logger.InfoContext(ctx, "confirmed match already recorded, resuming completion",
			attr.RecordID("record_id", rec.ID),
		)
	}

	msg, err := utils.NewMessage(sharedevents.MatchCompletedPayloadV1{
		GuildID:   match.GuildID,
		Category:  match.Category,
		ChannelID: match.ChannelID,
		RecordID:  rec.ID,
		Map:       rec.Map,
		RedScore:  rec.RedScore,
		BlueScore: rec.BlueScore,
		Duration:  rec.Duration,
		Players:   players,
		StartedAt: rec.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("build completed event: %w", err)
	}
	if err := s.bus.Publish(sharedevents.MatchCompletedV1, msg); err != nil {
		return fmt.Errorf("publish completed event: %w", err)
	}

	if channel := s.notifyChannel(ctx, match); channel != "" {
		text := fmt.Sprintf("Match on %s confirmed: Red %d - %d Blue (log #%d).",
			rec.Map, rec.RedScore, rec.BlueScore, rec.ID)
		if forced {
			text += " Confirmed at the queue ceiling; the log may be incomplete."
		}
		if err := s.notifier.Notify(ctx, match.GuildID, channel, text); err != nil {
			s.logger.WarnContext(ctx, "completion notification not delivered",
				attr.GuildID("guild_id", match.GuildID),
				attr.Error(err),
			)
		}
	}

	if err := s.repo.MarkCompleted(ctx, match.ID); err != nil {
		if errors.Is(err, reconciledb.ErrStateConflict) {
			return nil
		}
		return fmt.Errorf("completed transition: %w", err)
	}

	s.metrics.RecordMatchCompleted(ctx, forced)
	s.logger.InfoContext(ctx, "match completed",
		attr.String("pending_id", match.ID.String()),
		attr.GuildID("guild_id", match.GuildID),
		attr.RecordID("record_id", rec.ID),
		attr.Bool("forced", forced),
	)
	return nil
}

// buildPlayerResults flattens the record roster and resolves internal
// accounts in one batch. Unregistered players keep an empty UserID; the
// rating engine skips them.
func (s *ReconcileService) buildPlayerResults(ctx context.Context, rec *logclient.Record) ([]sharedtypes.PlayerResult, error) {
	gameIDs := make([]sharedtypes.GameID, 0, len(rec.Players))
	for gameID := range rec.Players {
		gameIDs = append(gameIDs, gameID)
	}

	resolved, err := s.users.ResolveBatch(ctx, gameIDs)
	if err != nil {
		return nil, err
	}

	results := make([]sharedtypes.PlayerResult, 0, len(rec.Players))
	for gameID, p := range rec.Players {
		results = append(results, sharedtypes.PlayerResult{
			GameID: gameID,
			UserID: resolved[gameID],
			Team:   p.Team,
			Stats:  p.Stats,
		})
	}
	return results, nil
}
