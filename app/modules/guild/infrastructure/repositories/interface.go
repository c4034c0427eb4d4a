package guilddb

import (
	"context"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Repository is the storage surface of the guild module.
type Repository interface {
	GetConfig(ctx context.Context, guildID sharedtypes.GuildID) (*GuildConfig, error)
	UpsertConfig(ctx context.Context, cfg *GuildConfig) error
}
