package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for quiz feeds and session snapshots.
var Migrations = migrate.NewMigrations()
