package schema

import (
	"embed"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/postgres"
	"github.com/Togather-Foundation/conflicts/internal/storage/sqlite"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration for the adapter's dialect.
// Running it against an up to date schema is a no-op.
func MigrateUp(adapter storage.Adapter, logger zerolog.Logger) error {
	m, closeFn, err := newMigrator(adapter, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func MigrateDown(adapter storage.Adapter, steps int, logger zerolog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("migrate down: steps must be > 0")
	}
	m, closeFn, err := newMigrator(adapter, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version reports the applied schema version. A fresh database reports 0.
func Version(adapter storage.Adapter, logger zerolog.Logger) (uint, bool, error) {
	m, closeFn, err := newMigrator(adapter, logger)
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator runs migrations over the adapter's own connections so the
// single SQLite connection (and in-memory databases) are shared with the
// application. The returned close func releases migrator resources without
// closing the adapter.
func newMigrator(adapter storage.Adapter, logger zerolog.Logger) (*migrate.Migrate, func(), error) {
	switch a := adapter.(type) {
	case *postgres.Adapter:
		source, err := iofs.New(migrationsFS, "migrations/postgres")
		if err != nil {
			return nil, nil, fmt.Errorf("load postgres migrations: %w", err)
		}
		// Closing this handle hands connections back to the pool; the pool
		// itself stays open.
		db := stdlib.OpenDBFromPool(a.Pool())
		driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
		if err != nil {
			_ = source.Close()
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
		if err != nil {
			_ = source.Close()
			_ = driver.Close()
			return nil, nil, fmt.Errorf("init migrator: %w", err)
		}
		m.Log = migrateLogger{logger: logger}
		return m, func() { _, _ = m.Close() }, nil

	case *sqlite.Adapter:
		source, err := iofs.New(migrationsFS, "migrations/sqlite")
		if err != nil {
			return nil, nil, fmt.Errorf("load sqlite migrations: %w", err)
		}
		driver, err := sqlitemigrate.WithInstance(a.DB(), &sqlitemigrate.Config{})
		if err != nil {
			_ = source.Close()
			return nil, nil, fmt.Errorf("init sqlite migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
		if err != nil {
			_ = source.Close()
			return nil, nil, fmt.Errorf("init migrator: %w", err)
		}
		m.Log = migrateLogger{logger: logger}
		// The driver's Close would close the adapter's handle.
		return m, func() { _ = source.Close() }, nil
	}
	return nil, nil, fmt.Errorf("migrations not supported for adapter %T", adapter)
}

type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug().Str("component", "migrate").Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
