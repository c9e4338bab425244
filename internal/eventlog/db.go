// Package eventlog is the controller's local event-log store: a sqlite
// database, schema-managed by golang-migrate, recording session
// lifecycle events, calibration attempts, and auto-recorder hysteresis
// transitions for offline review. Grounded on the teacher's
// internal/db migration wiring (iofs + sqlite.WithInstance), trimmed to
// this domain's much smaller schema.
package eventlog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/soar-cam/trackerd/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlite connection carrying the event-log schema.
type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the sqlite database at path, applies the
// concurrency pragmas the teacher's db package uses, and migrates the
// schema up to the latest version.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("eventlog: apply %q: %w", p, err)
		}
	}
	return nil
}

// migrateUp runs all pending migrations embedded in this package.
// Note: the returned *migrate.Migrate is never Closed, because the
// sqlite database driver's Close() would close db.DB itself, which this
// DB's caller owns and closes separately.
func (db *DB) migrateUp() error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("eventlog: migrations sub-fs: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("eventlog: iofs source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("eventlog: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("eventlog: migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("eventlog: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[eventlog migrate] "+format, v...)
}
func (l *migrateLogger) Verbose() bool { return false }
