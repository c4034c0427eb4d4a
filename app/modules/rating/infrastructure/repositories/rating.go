package ratingdb

import (
	"context"
	"database/sql"
	"fmt"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// RatingDBImpl is the bun-backed Repository.
type RatingDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*RatingDBImpl)(nil)

func (db *RatingDBImpl) GetGlobal(ctx context.Context, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GlobalRating, error) {
	var rows []GlobalRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch global ratings: %w", err)
	}

	out := make(map[sharedtypes.UserID]*GlobalRating, len(rows))
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}

func (db *RatingDBImpl) GetGameMode(ctx context.Context, mode sharedtypes.GameMode, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GameModeRating, error) {
	var rows []GameModeRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("mode = ?", mode).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s ratings: %w", mode, err)
	}

	out := make(map[sharedtypes.UserID]*GameModeRating, len(rows))
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}

func (db *RatingDBImpl) GetGuild(ctx context.Context, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GuildRating, error) {
	var rows []GuildRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild ratings: %w", err)
	}

	out := make(map[sharedtypes.UserID]*GuildRating, len(rows))
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}

func (db *RatingDBImpl) GetGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*GuildCategoryRating, error) {
	var rows []GuildCategoryRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Where("category = ?", category).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category ratings: %w", err)
	}

	out := make(map[sharedtypes.UserID]*GuildCategoryRating, len(rows))
	for i := range rows {
		out[rows[i].UserID] = &rows[i]
	}
	return out, nil
}

// ApplyMatch is the rating engine's single write path. The applied-record
// insert and every scope upsert share one transaction, so a crash can never
// leave a record half-rated: either the marker and all rows land, or none do.
func (db *RatingDBImpl) ApplyMatch(ctx context.Context, record *AppliedRecord, update *MatchRatingUpdate) (bool, error) {
	applied := false
	err := db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (record_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark record %d applied: %w", record.RecordID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read applied result for record %d: %w", record.RecordID, err)
		}
		if affected == 0 {
			return nil
		}
		applied = true

		for i := range update.Global {
			if err := upsertRating(ctx, tx, &update.Global[i], "(user_id)"); err != nil {
				return err
			}
		}
		for i := range update.GameMode {
			if err := upsertRating(ctx, tx, &update.GameMode[i], "(user_id, mode)"); err != nil {
				return err
			}
		}
		for i := range update.Guild {
			if err := upsertRating(ctx, tx, &update.Guild[i], "(guild_id, user_id)"); err != nil {
				return err
			}
		}
		for i := range update.GuildCategory {
			if err := upsertRating(ctx, tx, &update.GuildCategory[i], "(guild_id, category, user_id)"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func upsertRating(ctx context.Context, tx bun.Tx, model any, conflict string) error {
	_, err := tx.NewInsert().
		Model(model).
		On("CONFLICT "+conflict+" DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Set("wins = EXCLUDED.wins").
		Set("losses = EXCLUDED.losses").
		Set("played = EXCLUDED.played").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert rating row: %w", err)
	}
	return nil
}

func (db *RatingDBImpl) IsApplied(ctx context.Context, recordID sharedtypes.RecordID) (bool, error) {
	exists, err := db.DB.NewSelect().
		Model((*AppliedRecord)(nil)).
		Where("record_id = ?", recordID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check applied record %d: %w", recordID, err)
	}
	return exists, nil
}

func (db *RatingDBImpl) TopGlobal(ctx context.Context, limit int) ([]GlobalRating, error) {
	var rows []GlobalRating
	err := db.DB.NewSelect().
		Model(&rows).
		Order("rating DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch global leaderboard: %w", err)
	}
	return rows, nil
}

func (db *RatingDBImpl) TopGameMode(ctx context.Context, mode sharedtypes.GameMode, limit int) ([]GameModeRating, error) {
	var rows []GameModeRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("mode = ?", mode).
		Order("rating DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s leaderboard: %w", mode, err)
	}
	return rows, nil
}

func (db *RatingDBImpl) TopGuild(ctx context.Context, guildID sharedtypes.GuildID, limit int) ([]GuildRating, error) {
	var rows []GuildRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Order("rating DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild leaderboard: %w", err)
	}
	return rows, nil
}

func (db *RatingDBImpl) TopGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, limit int) ([]GuildCategoryRating, error) {
	var rows []GuildCategoryRating
	err := db.DB.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Where("category = ?", category).
		Order("rating DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category leaderboard: %w", err)
	}
	return rows, nil
}
