package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration of the state document table
// stopped halfway and needs manual repair.
var ErrDirtySchema = errors.New("state document schema is dirty")

// migrateStateSchema brings the state_document table up to the latest
// embedded version and returns that version.
//
// golang-migrate closes the database it is given, so it gets its own
// connection rather than the store's pool.
func migrateStateSchema(dbPath string) (uint, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration connection: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("sqlite migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return from, fmt.Errorf("%w at version %d (%s)", ErrDirtySchema, from, dbPath)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return from, fmt.Errorf("migrate state document: %w", err)
	}

	to, _, err := m.Version()
	if err != nil {
		return from, fmt.Errorf("read schema version: %w", err)
	}
	if to != from {
		slog.Info("State document schema migrated", "path", dbPath, "from", from, "to", to)
	} else {
		slog.Debug("State document schema up to date", "path", dbPath, "version", to)
	}
	return to, nil
}
