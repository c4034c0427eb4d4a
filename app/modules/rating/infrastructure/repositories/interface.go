package ratingdb

import (
	"context"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Repository is the rating engine's storage. Reads return only existing rows;
// callers substitute DefaultRating for absent players.
type Repository interface {
	GetGlobal(ctx context.Context, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GlobalRating, error)
	GetGameMode(ctx context.Context, mode sharedtypes.GameMode, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GameModeRating, error)
	GetGuild(ctx context.Context, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GuildRating, error)
	GetGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GuildCategoryRating, error)

	// ApplyMatch writes the applied-record marker and every scope row in one
	// transaction. False means the record was already applied; nothing is
	// written.
	ApplyMatch(ctx context.Context, record *AppliedRecord, update *MatchRatingUpdate) (bool, error)

	// IsApplied reports whether a record has already been rated.
	IsApplied(ctx context.Context, recordID sharedtypes.RecordID) (bool, error)

	// Leaderboard reads, highest rating first.
	TopGlobal(ctx context.Context, limit int) ([]GlobalRating, error)
	TopGameMode(ctx context.Context, mode sharedtypes.GameMode, limit int) ([]GameModeRating, error)
	TopGuild(ctx context.Context, guildID sharedtypes.GuildID, limit int) ([]GuildRating, error)
	TopGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, limit int) ([]GuildCategoryRating, error)
}
