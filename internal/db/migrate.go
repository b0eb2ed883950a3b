package db

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/pranganb/vtube/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewMigrator returns a migrator for the configured database. Migrations come
// from MIGRATIONS_PATH when set and from the copy built into the binary
// otherwise.
func NewMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	if dir := strings.TrimSpace(cfg.MigrationsPath); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve migrations path: %w", err)
		}
		return migrate.New("file://"+filepath.ToSlash(abs), DSN(cfg))
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", source, DSN(cfg))
}
