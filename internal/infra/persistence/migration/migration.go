// Package migration applies the embedded SQL schema with golang-migrate.
package migration

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"storefront/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed sql/*.sql
var migrationFS embed.FS

const sourceDir = "sql"

// Migrator runs schema migrations against the primary database.
type Migrator struct {
	databaseURL string
	logger      *slog.Logger
	verbose     bool
}

// New creates a Migrator from the migration config section.
func New(cfg *config.Config, logger *slog.Logger) (*Migrator, error) {
	if cfg.Migration == nil || cfg.Migration.DatabaseURL == "" {
		return nil, errors.New("migration.databaseUrl is required")
	}
	if !strings.HasPrefix(cfg.Migration.DatabaseURL, "pgx5://") {
		return nil, errors.New("migration.databaseUrl must use the pgx5:// scheme")
	}

	return &Migrator{
		databaseURL: cfg.Migration.DatabaseURL,
		logger:      logger,
		verbose:     cfg.Env.Debug,
	}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	return m.run("up", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	return m.run("down", func(mg *migrate.Migrate) error { return mg.Down() })
}

// Steps applies n migrations, or rolls back -n when n is negative.
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func(mg *migrate.Migrate) error { return mg.Steps(n) })
}

// Force sets the recorded version without running migrations, clearing a dirty state.
func (m *Migrator) Force(version int) error {
	return m.run(fmt.Sprintf("force %d", version), func(mg *migrate.Migrate) error { return mg.Force(version) })
}

// Version reports the applied version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer m.close(mg)

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to read migration version")
	}

	return version, dirty, nil
}

func (m *Migrator) run(action string, fn func(*migrate.Migrate) error) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer m.close(mg)

	err = fn(mg)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply", slog.String("action", action))

		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to migrate %s", action)
	}

	m.logger.Info("Migrations applied", slog.String("action", action))

	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, sourceDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded migrations")
	}

	mg, err := migrate.NewWithSourceInstance("iofs", src, m.databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migrator")
	}
	mg.Log = &slogMigrateLogger{logger: m.logger, verbose: m.verbose}

	return mg, nil
}

func (m *Migrator) close(mg *migrate.Migrate) {
	srcErr, dbErr := mg.Close()
	if srcErr != nil || dbErr != nil {
		m.logger.Warn("Failed to close migrator",
			slog.Any("sourceError", srcErr),
			slog.Any("databaseError", dbErr),
		)
	}
}

// slogMigrateLogger adapts slog to migrate.Logger.
type slogMigrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

func (l *slogMigrateLogger) Printf(format string, v ...any) {
	l.logger.Info("migrate", slog.String("message", strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (l *slogMigrateLogger) Verbose() bool {
	return l.verbose
}
