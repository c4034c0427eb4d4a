package ratingdb

import (
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// DefaultRating is the rating a player carries before any rated match.
const DefaultRating = 1000

// GlobalRating is the network-wide scope: one row per account.
type GlobalRating struct {
	bun.BaseModel `bun:"table:ratings_global,alias:rg"`

	UserID    sharedtypes.UserID `bun:"user_id,pk"`
	Rating    float64            `bun:"rating,notnull"`
	Wins      int                `bun:"wins,notnull,default:0"`
	Losses    int                `bun:"losses,notnull,default:0"`
	Played    int                `bun:"played,notnull,default:0"`
	UpdatedAt time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GameModeRating is the team-format scope: one row per account per format.
type GameModeRating struct {
	bun.BaseModel `bun:"table:ratings_gamemode,alias:rm"`

	UserID    sharedtypes.UserID   `bun:"user_id,pk"`
	Mode      sharedtypes.GameMode `bun:"mode,pk"`
	Rating    float64              `bun:"rating,notnull"`
	Wins      int                  `bun:"wins,notnull,default:0"`
	Losses    int                  `bun:"losses,notnull,default:0"`
	Played    int                  `bun:"played,notnull,default:0"`
	UpdatedAt time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GuildRating is the community scope: one row per account per guild.
type GuildRating struct {
	bun.BaseModel `bun:"table:ratings_guild,alias:rgu"`

	GuildID   sharedtypes.GuildID `bun:"guild_id,pk"`
	UserID    sharedtypes.UserID  `bun:"user_id,pk"`
	Rating    float64             `bun:"rating,notnull"`
	Wins      int                 `bun:"wins,notnull,default:0"`
	Losses    int                 `bun:"losses,notnull,default:0"`
	Played    int                 `bun:"played,notnull,default:0"`
	UpdatedAt time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GuildCategoryRating is the narrowest scope: one row per account per pickup
// category within a guild.
type GuildCategoryRating struct {
	bun.BaseModel `bun:"table:ratings_guild_category,alias:rgc"`

	GuildID   sharedtypes.GuildID  `bun:"guild_id,pk"`
	Category  sharedtypes.Category `bun:"category,pk"`
	UserID    sharedtypes.UserID   `bun:"user_id,pk"`
	Rating    float64              `bun:"rating,notnull"`
	Wins      int                  `bun:"wins,notnull,default:0"`
	Losses    int                  `bun:"losses,notnull,default:0"`
	Played    int                  `bun:"played,notnull,default:0"`
	UpdatedAt time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// AppliedRecord marks a match record as rated. Its primary key is the
// idempotence guard: a record rates at most once no matter how often its
// completion event is redelivered.
type AppliedRecord struct {
	bun.BaseModel `bun:"table:applied_records,alias:ar"`

	RecordID  sharedtypes.RecordID `bun:"record_id,pk"`
	GuildID   sharedtypes.GuildID  `bun:"guild_id,notnull"`
	AppliedAt time.Time            `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

// MatchRatingUpdate is every scope row produced by rating one match, applied
// in a single transaction together with the applied-record marker.
type MatchRatingUpdate struct {
	Global        []GlobalRating
	GameMode      []GameModeRating
	Guild         []GuildRating
	GuildCategory []GuildCategoryRating
}
