package db

import (
	"context"
	"embed"
	"io/fs"

	dbmigrate "github.com/codequery/codequery/internal/db/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// EnsureSchema brings the database schema up to date using the embedded
// migration files.
func (d *Database) EnsureSchema(ctx context.Context, autoMigrate bool) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return dbmigrate.EnsureCurrent(ctx, d.bun, sub, autoMigrate)
}
