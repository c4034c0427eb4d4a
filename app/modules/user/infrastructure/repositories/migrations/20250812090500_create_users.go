package usermigrations

import (
	"context"

	userdb "github.com/pugscord/pugbot/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*userdb.User)(nil)).
			IfNotExists().
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().
			Model((*userdb.User)(nil)).
			IfExists().
			Exec(ctx)
		return err
	})
}
