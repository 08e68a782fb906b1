package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"entgo.io/ent/dialect"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations.
// It owns its own connection because closing a migrate instance closes the underlying DB.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a dedicated connection for the client's database and loads the
// migrations for its dialect
func (c *Client) NewMigrator() (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	db, err := sql.Open(driverName(c.Dialect), c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}

	var drv migratedb.Driver
	switch c.Dialect {
	case dialect.Postgres:
		drv, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		drv, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, c.Dialect, drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to init migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Up applies all pending migrations
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls back the given number of migrations
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version returns the current schema version. Zero means no migration applied.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the migration connection
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// Migrate brings the schema up to date
func (c *Client) Migrate() error {
	mg, err := c.NewMigrator()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil {
		return err
	}

	v, _, _ := mg.Version()
	log.Printf("✅ Database migrations applied (version %d)", v)
	return nil
}
