package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/storefront/backend/migrations"
	"go.uber.org/zap"
)

// Source is where migration files are read from
type Source struct {
	name string
	fsys fs.FS
}

// Embedded reads the migrations compiled into the binary
func Embedded() Source {
	return Source{name: "embedded", fsys: migrations.FS}
}

// Dir reads migrations from a directory on disk
func Dir(path string) Source {
	return Source{name: path, fsys: os.DirFS(path)}
}

// String names the source in logs
func (s Source) String() string { return s.name }

// Files lists the migration base names of the source
func (s Source) Files() ([]string, error) {
	return ListMigrations(s.fsys)
}

func (s Source) driver() (source.Driver, error) {
	d, err := iofs.New(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source %s: %w", s.name, err)
	}
	return d, nil
}

// Migrator applies schema migrations to PostgreSQL
type Migrator struct {
	migrate *migrate.Migrate
	source  Source
	logger  *zap.Logger
}

// Status is the schema state of a database
type Status struct {
	Version uint
	Dirty   bool
	// Pending lists migrations newer than Version
	Pending []string
}

// New creates a Migrator on an open connection. Close releases the
// migration lock connection but leaves db open.
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}
	srcDriver, err := src.driver()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{migrate: m, source: src, logger: logger}, nil
}

// NewFromURL creates a Migrator that opens its own connection
func NewFromURL(databaseURL string, src Source, logger *zap.Logger) (*Migrator, error) {
	srcDriver, err := src.driver()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", srcDriver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{migrate: m, source: src, logger: logger}, nil
}

// apply runs op and logs the resulting version. ErrNoChange is not an error.
func (m *Migrator) apply(name string, op func() error) error {
	m.logger.Info("Running migrations", zap.String("operation", name), zap.Stringer("source", m.source))

	if err := op(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema already up to date", zap.String("operation", name))
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations completed",
		zap.String("operation", name),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps(%d)", n), func() error { return m.migrate.Steps(n) })
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto(%d)", version), func() error { return m.migrate.Migrate(version) })
}

// Version returns the applied version; zero when nothing is applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Status reports the applied version and the migrations not yet applied
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	files, err := m.source.Files()
	if err != nil {
		return Status{}, err
	}
	return Status{Version: version, Dirty: dirty, Pending: pendingAfter(files, version)}, nil
}

// Force records version as applied without running anything. It clears the
// dirty flag left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table of the database
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all database objects")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

// Close releases the source and database drivers
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
