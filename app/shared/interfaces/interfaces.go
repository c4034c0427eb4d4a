package sharedinterface

import (
	"context"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// GuildConfigReader exposes per-guild configuration to the sweeps without
// coupling them to the guild module's storage.
type GuildConfigReader interface {
	GetConfig(ctx context.Context, guildID sharedtypes.GuildID) (*guilddb.GuildConfig, error)
}

// UserLookup resolves game-network identities to internal accounts. A nil
// result with nil error means the player is unregistered, which is legal
// everywhere in the pipeline.
type UserLookup interface {
	Resolve(ctx context.Context, gameID sharedtypes.GameID) (*sharedtypes.UserID, error)
	ResolveBatch(ctx context.Context, gameIDs []sharedtypes.GameID) (map[sharedtypes.GameID]sharedtypes.UserID, error)
}

// Notifier posts human-readable results to a guild channel. Implementations
// are best-effort; callers must not let a notify failure block a state
// transition.
type Notifier interface {
	Notify(ctx context.Context, guildID sharedtypes.GuildID, channelID, text string) error
}
