// Package migration applies the embedded store schema with golang-migrate
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/farmstore/backend/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

var (
	// ErrUnknownCommand is returned by Run for a command it does not know
	ErrUnknownCommand = errors.New("unknown migration command")
	// ErrMissingArgument is returned by Run when a command needs a number
	ErrMissingArgument = errors.New("migration command needs a numeric argument")
)

// Status is the schema version of the store
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator migrates the products, orders and order_items tables of a PostgreSQL store
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator on an open PostgreSQL connection
func New(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{migrate: m, logger: logger}, nil
}

// Run executes one CLI command: up, down, step <n>, version or force <v>.
// It returns the status after the command.
func (m *Migrator) Run(command string, args []string) (Status, error) {
	var err error
	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step", "force":
		if len(args) == 0 {
			return Status{}, fmt.Errorf("%w: %s", ErrMissingArgument, command)
		}
		n, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return Status{}, fmt.Errorf("%w: %s %q", ErrMissingArgument, command, args[0])
		}
		if command == "step" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	case "version":
	default:
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if err != nil {
		return Status{}, err
	}
	return m.Status()
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply("step "+strconv.Itoa(n), func() error { return m.migrate.Steps(n) })
}

func (m *Migrator) apply(name string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already current", zap.String("command", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", name, err)
	}
	st, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Schema migrated", zap.String("command", name), zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
	return nil
}

// Status returns the applied version; zero when nothing was applied
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Force records version as applied without running it, clearing a dirty state
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
