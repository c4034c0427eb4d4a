// Package bundb wires every module repository onto one bun connection.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	userdb "github.com/pugscord/pugbot/app/modules/user/infrastructure/repositories"
	"github.com/pugscord/pugbot/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DBService bundles the per-module repositories sharing one connection pool.
type DBService struct {
	GuildDB     *guilddb.GuildDBImpl
	UserDB      *userdb.UserDBImpl
	ReconcileDB *reconciledb.ReconcileDBImpl
	RatingDB    *ratingdb.RatingDBImpl
	db          *bun.DB
}

// GetDB returns the underlying database connection pool.
func (s *DBService) GetDB() *bun.DB {
	return s.db
}

// Close releases the connection pool.
func (s *DBService) Close() error {
	return s.db.Close()
}

// NewBunDBService connects to Postgres and builds the repository set.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig) (*DBService, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	return &DBService{
		GuildDB:     &guilddb.GuildDBImpl{DB: db},
		UserDB:      &userdb.UserDBImpl{DB: db},
		ReconcileDB: &reconciledb.ReconcileDBImpl{DB: db},
		RatingDB:    &ratingdb.RatingDBImpl{DB: db},
		db:          db,
	}, nil
}
