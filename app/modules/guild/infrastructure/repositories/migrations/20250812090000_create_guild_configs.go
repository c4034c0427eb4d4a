package guildmigrations

import (
	"context"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*guilddb.GuildConfig)(nil)).
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*guilddb.GuildConfig)(nil)).
			IfExists().
			Exec(ctx)
		return err
	})
}
