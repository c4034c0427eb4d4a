package reconcilemigrations

import (
	"context"

	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*reconciledb.PendingMatch)(nil),
			(*reconciledb.RecordClaim)(nil),
			(*reconciledb.ConfirmedMatch)(nil),
		}
		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		// Sweeps select on state every tick.
		if _, err := db.NewCreateIndex().
			Model((*reconciledb.PendingMatch)(nil)).
			Index("pending_matches_state_idx").
			Column("state").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*reconciledb.ConfirmedMatch)(nil),
			(*reconciledb.RecordClaim)(nil),
			(*reconciledb.PendingMatch)(nil),
		}
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
