package ratingmigrations

import (
	"context"

	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*ratingdb.GlobalRating)(nil),
			(*ratingdb.GameModeRating)(nil),
			(*ratingdb.GuildRating)(nil),
			(*ratingdb.GuildCategoryRating)(nil),
			(*ratingdb.AppliedRecord)(nil),
		}
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*ratingdb.AppliedRecord)(nil),
			(*ratingdb.GuildCategoryRating)(nil),
			(*ratingdb.GuildRating)(nil),
			(*ratingdb.GameModeRating)(nil),
			(*ratingdb.GlobalRating)(nil),
		}
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
