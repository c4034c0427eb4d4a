package ratingservice

import (
	"context"
	"fmt"
	"strings"

	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/observability/attr"
)

// scopeForMode maps a guild's configured rating mode onto the scope label its
// announcements carry.
func scopeForMode(mode sharedtypes.RatingMode) string {
	switch mode {
	case sharedtypes.RatingModeGameMode:
		return ScopeGameMode
	case sharedtypes.RatingModeGuild:
		return ScopeGuild
	case sharedtypes.RatingModeCategory:
		return ScopeGuildCategory
	default:
		return ScopeGlobal
	}
}

// announceResult posts the configured scope's rating changes to the guild's
// results channel, falling back to the channel the pickup was started from.
// Best-effort: a failure here never unwinds an applied match.
func (s *RatingService) announceResult(ctx context.Context, payload sharedevents.MatchCompletedPayloadV1, result *sharedevents.RatingUpdatedPayloadV1) {
	cfg, err := s.guilds.GetConfig(ctx, payload.GuildID)
	if err != nil {
		s.logger.WarnContext(ctx, "guild config read failed, skipping rating announcement",
			attr.GuildID("guild_id", payload.GuildID),
			attr.Error(err),
		)
		return
	}

	channel := cfg.ResultsChannelID
	if channel == "" {
		channel = payload.ChannelID
	}
	if channel == "" {
		return
	}

	// A guild announces exactly one scope; the others still apply silently.
	scope := scopeForMode(cfg.RatingMode)
	var lines []string
	for _, d := range result.Deltas {
		if d.Scope != scope {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d -> %d", d.UserID, d.Old, d.New))
	}
	if len(lines) == 0 {
		return
	}

	text := fmt.Sprintf("Rating changes (%s): %s", scope, strings.Join(lines, ", "))
	if err := s.notifier.Notify(ctx, payload.GuildID, channel, text); err != nil {
		s.logger.WarnContext(ctx, "rating announcement not delivered",
			attr.GuildID("guild_id", payload.GuildID),
			attr.Error(err),
		)
	}
}
