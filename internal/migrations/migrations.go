// Package migrations holds the schema of the raw_data, five_minute_delta and
// hour_delta tables.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var MigrationFiles embed.FS

// Migration is one embedded schema step.
type Migration struct {
	Version uint
	Name    string
}

// Schema is the migration state of a database.
type Schema struct {
	Version uint
	Dirty   bool
	Latest  uint
}

// Current reports whether the database has every embedded migration.
func (s Schema) Current() bool {
	return !s.Dirty && s.Version == s.Latest
}

func newSource() (source.Driver, error) {
	src, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	return src, nil
}

// Embedded lists the embedded migrations in version order.
func Embedded() ([]Migration, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return list(src)
}

func list(src source.Driver) ([]Migration, error) {
	var out []Migration
	v, err := src.First()
	for err == nil {
		r, name, rerr := src.ReadUp(v)
		if rerr != nil {
			return nil, fmt.Errorf("read migration %d: %w", v, rerr)
		}
		r.Close()
		out = append(out, Migration{Version: v, Name: name})
		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return out, nil
}

// Pending returns the migrations after version current.
func Pending(all []Migration, current uint) []Migration {
	var out []Migration
	for _, m := range all {
		if m.Version > current {
			out = append(out, m)
		}
	}
	return out
}

func latest(all []Migration) uint {
	if len(all) == 0 {
		return 0
	}
	return all[len(all)-1].Version
}

// RunMigrations applies the pending migrations one version at a time. If
// autoMigrate is false, it only reports what is pending.
func RunMigrations(db *sql.DB, autoMigrate bool) (Schema, error) {
	src, err := newSource()
	if err != nil {
		return Schema{}, err
	}
	all, err := list(src)
	if err != nil {
		return Schema{}, err
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return Schema{}, fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Schema{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	schema := Schema{Version: version, Dirty: dirty, Latest: latest(all)}

	if dirty {
		slog.Warn("[Migrations] Database is in dirty state", "version", version)
		// The delta tables are rebuilt from raw_data, and every step is
		// CREATE ... IF NOT EXISTS, so re-running the step is safe.
		if err := m.Force(int(version)); err != nil {
			return schema, fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
		}
		schema.Dirty = false
	}

	pending := Pending(all, version)
	if !autoMigrate {
		for _, p := range pending {
			slog.Warn("[Migrations] Pending", "version", p.Version, "name", p.Name)
		}
		slog.Info("[Migrations] Auto-migration disabled", "current_version", version, "pending", len(pending))
		return schema, nil
	}

	for _, p := range pending {
		if err := m.Migrate(p.Version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return schema, fmt.Errorf("failed to apply migration %d (%s): %w", p.Version, p.Name, err)
		}
		schema.Version = p.Version
		slog.Info("[Migrations] Applied", "version", p.Version, "name", p.Name)
	}
	slog.Info("[Migrations] Schema is up to date", "version", schema.Version)
	return schema, nil
}
