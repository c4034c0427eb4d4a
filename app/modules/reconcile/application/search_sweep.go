package reconcileservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/pugscord/pugbot/internal/utils"
)

// SearchSweep visits every searching match once: binds a record and promotes
// to queued when one is found, fails matches older than the search horizon,
// and leaves the rest for the next tick. One match's failure never aborts the
// sweep.
func (s *ReconcileService) SearchSweep(ctx context.Context) (*SweepStats, error) {
	return withTelemetry(s, ctx, "SearchSweep", func(ctx context.Context) (*SweepStats, error) {
		matches, err := s.repo.ListByState(ctx, reconciledb.StateSearching)
		if err != nil {
			return nil, fmt.Errorf("list searching matches: %w", err)
		}

		stats := &SweepStats{Processed: len(matches)}
		for i := range matches {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			s.searchOne(ctx, &matches[i], stats)
		}

		if stats.Processed > 0 {
			s.logger.InfoContext(ctx, "search sweep finished",
				attr.Int("processed", stats.Processed),
				attr.Int("queued", stats.Queued),
				attr.Int("failed", stats.Failed),
				attr.Int("skipped", stats.Skipped),
			)
		}
		return stats, nil
	})
}

func (s *ReconcileService) searchOne(ctx context.Context, match *reconciledb.PendingMatch, stats *SweepStats) {
	if s.now().Sub(match.CreatedAt) > s.cfg.SearchHorizon {
		s.failMatch(ctx, match, "no matching record found within the search horizon")
		stats.Failed++
		return
	}

	rec, err := s.selectCandidate(ctx, match)
	if err != nil {
		if !errors.Is(err, ErrNoCandidate) {
			s.logger.WarnContext(ctx, "candidate search failed, retrying next sweep",
				attr.String("pending_id", match.ID.String()),
				attr.Error(err),
			)
		}
		stats.Skipped++
		return
	}

	if err := s.claimRecord(ctx, rec.ID, match.ID); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			// The next sweep searches again without this record.
			s.metrics.RecordCandidateRejected(ctx, "claim_race")
		} else {
			s.logger.ErrorContext(ctx, "record claim failed",
				attr.String("pending_id", match.ID.String()),
				attr.RecordID("record_id", rec.ID),
				attr.Error(err),
			)
		}
		stats.Skipped++
		return
	}

	if err := s.repo.MarkQueued(ctx, match.ID, rec.ID, s.now()); err != nil {
		// The claim belongs to this binding; undo it so the record is not
		// orphaned if the match was concurrently failed or completed.
		if relErr := s.repo.ReleaseClaim(ctx, rec.ID); relErr != nil {
			s.logger.ErrorContext(ctx, "claim release failed",
				attr.RecordID("record_id", rec.ID),
				attr.Error(relErr),
			)
		}
		s.logger.WarnContext(ctx, "queue promotion failed",
			attr.String("pending_id", match.ID.String()),
			attr.RecordID("record_id", rec.ID),
			attr.Error(err),
		)
		stats.Skipped++
		return
	}

	s.metrics.RecordMatchQueued(ctx)
	stats.Queued++
	s.logger.InfoContext(ctx, "match bound to record",
		attr.String("pending_id", match.ID.String()),
		attr.GuildID("guild_id", match.GuildID),
		attr.RecordID("record_id", rec.ID),
	)
}

// claimRecord inserts the durable claim, translating a lost race into
// ErrAlreadyClaimed. The claimed-set membership check in the matcher is only
// advisory; this insert is the authoritative one.
func (s *ReconcileService) claimRecord(ctx context.Context, recordID sharedtypes.RecordID, pendingID uuid.UUID) error {
	claimed, err := s.repo.ClaimRecord(ctx, recordID, pendingID)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("record %d: %w", recordID, ErrAlreadyClaimed)
	}
	return nil
}

// notifyChannel picks the destination for result notifications: the guild's
// configured results channel when one is set, otherwise the channel the
// pickup was started from. Config is re-read here so operators can repoint
// the channel while matches are in flight.
func (s *ReconcileService) notifyChannel(ctx context.Context, match *reconciledb.PendingMatch) string {
	cfg, err := s.guilds.GetConfig(ctx, match.GuildID)
	if err != nil {
		s.logger.WarnContext(ctx, "guild config read failed, using pickup channel",
			attr.GuildID("guild_id", match.GuildID),
			attr.Error(err),
		)
		return match.ChannelID
	}
	if cfg.ResultsChannelID != "" {
		return cfg.ResultsChannelID
	}
	return match.ChannelID
}

// failMatch performs the searching -> failed transition with its event and
// channel notification. The transition is the only step allowed to stop the
// failure; event and notification are best-effort.
func (s *ReconcileService) failMatch(ctx context.Context, match *reconciledb.PendingMatch, reason string) {
	if err := s.repo.MarkFailed(ctx, match.ID, reason); err != nil {
		if errors.Is(err, reconciledb.ErrStateConflict) {
			// Another sweep got there first; nothing left to do.
			return
		}
		s.logger.ErrorContext(ctx, "failed transition did not apply",
			attr.String("pending_id", match.ID.String()),
			attr.Error(err),
		)
		return
	}

	s.metrics.RecordMatchFailed(ctx)

	msg, err := utils.NewMessage(sharedevents.MatchFailedPayloadV1{
		GuildID:   match.GuildID,
		Category:  match.Category,
		ChannelID: match.ChannelID,
		Reason:    reason,
	})
	if err == nil {
		err = s.bus.Publish(sharedevents.MatchFailedV1, msg)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "match failed event publish failed",
			attr.String("pending_id", match.ID.String()),
			attr.Error(err),
		)
	}

	if channel := s.notifyChannel(ctx, match); channel != "" {
		text := fmt.Sprintf("Could not find a log for the %s pickup. Ratings were not adjusted.", match.Category)
		if err := s.notifier.Notify(ctx, match.GuildID, channel, text); err != nil {
			s.logger.WarnContext(ctx, "failure notification not delivered",
				attr.GuildID("guild_id", match.GuildID),
				attr.Error(err),
			)
		}
	}

	s.logger.InfoContext(ctx, "match failed",
		attr.String("pending_id", match.ID.String()),
		attr.GuildID("guild_id", match.GuildID),
		attr.String("reason", reason),
	)
}
