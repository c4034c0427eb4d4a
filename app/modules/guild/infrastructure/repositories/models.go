package guilddb

import (
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// GuildConfig is the per-guild feature configuration, read at sweep time.
type GuildConfig struct {
	bun.BaseModel `bun:"table:guild_configs,alias:gc"`

	GuildID          sharedtypes.GuildID    `bun:"guild_id,pk"`
	Enabled          bool                   `bun:"enabled,notnull,default:false"`
	RatingMode       sharedtypes.RatingMode `bun:"rating_mode,notnull,default:'global'"`
	ResultsChannelID string                 `bun:"results_channel_id"`
	Visible          bool                   `bun:"visible,notnull,default:true"`
	CreatedAt        time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time              `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// DefaultConfig is what an unknown guild gets: reconciliation disabled until
// an operator opts in.
func DefaultConfig(guildID sharedtypes.GuildID) *GuildConfig {
	return &GuildConfig{
		GuildID:    guildID,
		Enabled:    false,
		RatingMode: sharedtypes.RatingModeGlobal,
		Visible:    true,
	}
}
