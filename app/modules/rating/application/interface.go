package ratingservice

import (
	"context"

	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Service is the rating engine's operation surface.
type Service interface {
	// ApplyMatch rates one confirmed match across every applicable scope.
	// Returns ErrDuplicateApplication when the record was already applied.
	ApplyMatch(ctx context.Context, payload sharedevents.MatchCompletedPayloadV1) (*sharedevents.RatingUpdatedPayloadV1, error)

	// Leaderboard reads one scope's standings, highest rating first.
	Leaderboard(ctx context.Context, query LeaderboardQuery) ([]LeaderboardEntry, error)

	// LeaderboardChartPNG renders a scope's standings as a PNG bar chart.
	LeaderboardChartPNG(ctx context.Context, query LeaderboardQuery) ([]byte, error)

	// LeaderboardWorkbook renders a scope's standings as an xlsx workbook.
	LeaderboardWorkbook(ctx context.Context, query LeaderboardQuery) ([]byte, error)
}

// Scope labels used in events, queries, and metrics.
const (
	ScopeGlobal        = "global"
	ScopeGameMode      = "gamemode"
	ScopeGuild         = "guild"
	ScopeGuildCategory = "guild_category"
)

// LeaderboardQuery selects a scope and its key. Unused key fields stay empty.
type LeaderboardQuery struct {
	Scope    string
	Mode     sharedtypes.GameMode
	GuildID  sharedtypes.GuildID
	Category sharedtypes.Category
	Limit    int
}

// LeaderboardEntry is one standings row, scope-independent.
type LeaderboardEntry struct {
	Rank   int                `json:"rank"`
	UserID sharedtypes.UserID `json:"user_id"`
	Rating int                `json:"rating"`
	Wins   int                `json:"wins"`
	Losses int                `json:"losses"`
	Played int                `json:"played"`
}
