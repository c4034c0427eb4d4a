package sharedtypes

import "time"

// GuildID is a Discord guild (community) identifier.
type GuildID string

func (g GuildID) String() string { return string(g) }

// UserID is an internal account identifier (Discord snowflake).
type UserID string

func (u UserID) String() string { return string(u) }

// GameID is a player's game-network identity (steam64, carried as string).
type GameID string

func (g GameID) String() string { return string(g) }

// RecordID identifies a finished-match record on the logs service.
type RecordID int64

// Category is a pickup category within a guild, e.g. "NA-6s".
type Category string

func (c Category) String() string { return string(c) }

// GameMode is a rating scope bucket derived from roster size.
type GameMode string

const (
	GameModeFours      GameMode = "fours"
	GameModeSixes      GameMode = "sixes"
	GameModeHighlander GameMode = "highlander"
)

// GameModeForPlayerCount buckets a total roster size into a known team
// format. The bool is false for sizes that belong to no rated format.
func GameModeForPlayerCount(n int) (GameMode, bool) {
	switch {
	case n == 8:
		return GameModeFours, true
	case n >= 12 && n <= 14:
		return GameModeSixes, true
	case n >= 18 && n <= 20:
		return GameModeHighlander, true
	default:
		return "", false
	}
}

// RatingMode selects which rating scope a guild announces in results.
type RatingMode string

const (
	RatingModeGlobal   RatingMode = "global"
	RatingModeGameMode RatingMode = "gamemode"
	RatingModeGuild    RatingMode = "guild"
	RatingModeCategory RatingMode = "category"
)

// Participant is one roster slot of a tracked pickup. UserID is resolved
// lazily through the identity collaborator and may stay empty.
type Participant struct {
	GameID GameID `json:"game_id"`
	UserID UserID `json:"user_id,omitempty"`
}

// Resolved reports whether the participant maps to an internal account.
func (p Participant) Resolved() bool { return p.UserID != "" }

// TeamColor is the side a player fought on in a match record.
type TeamColor string

const (
	TeamRed  TeamColor = "red"
	TeamBlue TeamColor = "blue"
)

// ClassStats is the per-player per-class slice of a match record that the
// rating pipeline consumes.
type ClassStats struct {
	Class   string        `json:"class"`
	Kills   int           `json:"kills"`
	Deaths  int           `json:"deaths"`
	Damage  int           `json:"damage"`
	Played  time.Duration `json:"played"`
}

// PlayerResult joins a roster participant with the record's view of them.
type PlayerResult struct {
	GameID GameID       `json:"game_id"`
	UserID UserID       `json:"user_id,omitempty"`
	Team   TeamColor    `json:"team"`
	Stats  []ClassStats `json:"stats,omitempty"`
}
