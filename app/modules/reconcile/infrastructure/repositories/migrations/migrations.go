package reconcilemigrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
