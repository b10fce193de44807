package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/airbussard/jvc/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage bundles the SQLite connection pool with the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Members           *MemberRepository
	OrganizationUnits *OrganizationUnitRepository
	Events            *EventRepository
	Absences          *AbsenceRepository
	Attendances       *AttendanceRepository
}

// Open returns a Storage for dsn using ConfigFor.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(ConfigFor(dsn), nil)
}

// ConfigFor returns connection settings for dsn. ":memory:" selects a private
// in-memory database, anything else is treated as a file path or "file:" URI.
func ConfigFor(dsn string) migration.SQLiteConfig {
	if dsn == ":memory:" {
		return migration.InMemorySQLiteConfig()
	}
	return migration.DefaultSQLiteConfig(dsn)
}

// OpenWithConfig returns a Storage using the supplied connection settings.
func OpenWithConfig(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	return &Storage{
		pool:              pool,
		logger:            logger,
		Members:           NewMemberRepository(pool),
		OrganizationUnits: NewOrganizationUnitRepository(pool),
		Events:            NewEventRepository(pool),
		Absences:          NewAbsenceRepository(pool),
		Attendances:       NewAttendanceRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies every embedded migration that has not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.migrationManager().RunMigrations(ctx)
}

// MigrationStatus reports applied and pending migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	return s.migrationManager().GetMigrationStatus(ctx)
}

func (s *Storage) migrationManager() migration.MigrationManager {
	return migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		s.logger,
	)
}
