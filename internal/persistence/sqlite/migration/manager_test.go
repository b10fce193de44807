package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
)

func newTestManager(t *testing.T, fsys fstest.MapFS) (MigrationManager, *SQLiteExecutor) {
	t.Helper()

	db, err := NewConnectionManager(InMemorySQLiteConfig()).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	executor := NewSQLiteExecutor(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMigrationManager(NewFileScanner(fsys), executor, "migrations", logger), executor
}

func TestMigrationManager_RunMigrations(t *testing.T) {
	t.Run("applies pending migrations once", func(t *testing.T) {
		ctx := context.Background()
		fsys := fstest.MapFS{
			"migrations/001_members.sql": {Data: []byte("CREATE TABLE members (id TEXT PRIMARY KEY);")},
			"migrations/002_units.sql":   {Data: []byte("CREATE TABLE units (id TEXT PRIMARY KEY);\nCREATE INDEX idx_units_id ON units (id);")},
		}
		manager, executor := newTestManager(t, fsys)

		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}
		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("second RunMigrations failed: %v", err)
		}

		applied, err := executor.GetAppliedVersions(ctx)
		if err != nil {
			t.Fatalf("GetAppliedVersions failed: %v", err)
		}
		if len(applied) != 2 || applied[0].Version != "001" || applied[1].Version != "002" {
			t.Fatalf("unexpected applied versions: %#v", applied)
		}

		status, err := manager.GetMigrationStatus(ctx)
		if err != nil {
			t.Fatalf("GetMigrationStatus failed: %v", err)
		}
		if status.CurrentVersion != "002" || status.PendingCount != 0 {
			t.Fatalf("unexpected status: %#v", status)
		}
	})

	t.Run("rolls back failing migrations", func(t *testing.T) {
		ctx := context.Background()
		fsys := fstest.MapFS{
			"migrations/001_members.sql": {Data: []byte("CREATE TABLE members (id TEXT PRIMARY KEY);")},
			"migrations/002_broken.sql":  {Data: []byte("CREATE TABLE units (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);")},
		}
		manager, executor := newTestManager(t, fsys)

		err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}

		applied, err := executor.GetAppliedVersions(ctx)
		if err != nil {
			t.Fatalf("GetAppliedVersions failed: %v", err)
		}
		if len(applied) != 1 || applied[0].Version != "001" {
			t.Fatalf("expected only 001 applied, got %#v", applied)
		}
	})

	t.Run("detects gaps in the sequence", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001_members.sql": {Data: []byte("CREATE TABLE members (id TEXT PRIMARY KEY);")},
			"migrations/003_units.sql":   {Data: []byte("CREATE TABLE units (id TEXT PRIMARY KEY);")},
		}
		manager, _ := newTestManager(t, fsys)

		err := manager.RunMigrations(context.Background())
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}
