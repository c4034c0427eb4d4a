package guilddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// GuildDBImpl is the bun-backed Repository.
type GuildDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*GuildDBImpl)(nil)

// GetConfig returns the stored config for a guild, or the disabled default
// when the guild has never been configured.
func (db *GuildDBImpl) GetConfig(ctx context.Context, guildID sharedtypes.GuildID) (*GuildConfig, error) {
	var cfg GuildConfig
	err := db.DB.NewSelect().
		Model(&cfg).
		Where("guild_id = ?", guildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultConfig(guildID), nil
		}
		return nil, fmt.Errorf("failed to fetch config for guild %s: %w", guildID, err)
	}
	return &cfg, nil
}

// UpsertConfig writes a guild's configuration.
func (db *GuildDBImpl) UpsertConfig(ctx context.Context, cfg *GuildConfig) error {
	cfg.UpdatedAt = time.Now().UTC()

	_, err := db.DB.NewInsert().
		Model(cfg).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("rating_mode = EXCLUDED.rating_mode").
		Set("results_channel_id = EXCLUDED.results_channel_id").
		Set("visible = EXCLUDED.visible").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert config for guild %s: %w", cfg.GuildID, err)
	}
	return nil
}
