package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Run("orders migrations numerically and reads descriptions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_attendances.sql": {Data: []byte("CREATE TABLE attendances (id TEXT);")},
			"migrations/002_events.sql":      {Data: []byte("-- Description: Create events\nCREATE TABLE events (id TEXT);")},
			"migrations/001_members.sql":     {Data: []byte("CREATE TABLE members (id TEXT);")},
			"migrations/README.md":           {Data: []byte("ignored")},
		}

		migrations, err := NewFileScanner(fsys).ScanMigrations("migrations")
		if err != nil {
			t.Fatalf("ScanMigrations returned error: %v", err)
		}
		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "001" || migrations[1].Version != "002" || migrations[2].Version != "010" {
			t.Fatalf("unexpected order: %s, %s, %s", migrations[0].Version, migrations[1].Version, migrations[2].Version)
		}
		if migrations[0].Description != "members" {
			t.Fatalf("expected filename description, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "Create events" {
			t.Fatalf("expected content description, got %q", migrations[1].Description)
		}
		if migrations[0].Checksum == "" {
			t.Fatalf("expected checksum to be populated")
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001_members.sql": {Data: []byte("CREATE TABLE members (id TEXT);")},
			"migrations/001_units.sql":   {Data: []byte("CREATE TABLE units (id TEXT);")},
		}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		if !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects malformed file names", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/members.sql": {Data: []byte("CREATE TABLE members (id TEXT);")},
		}

		_, err := NewFileScanner(fsys).ScanMigrations("migrations")
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects comment-only and unbalanced files", func(t *testing.T) {
		for name, content := range map[string]string{
			"migrations/001_empty.sql":    "-- nothing here\n",
			"migrations/001_unclosed.sql": "CREATE TABLE members (id TEXT;",
		} {
			fsys := fstest.MapFS{name: {Data: []byte(content)}}
			_, err := NewFileScanner(fsys).ScanMigrations("migrations")
			if !errors.Is(err, ErrInvalidMigrationFile) {
				t.Fatalf("%s: expected ErrInvalidMigrationFile, got %v", name, err)
			}
		}
	})

	t.Run("reports missing directories", func(t *testing.T) {
		_, err := NewFileScanner(fstest.MapFS{}).ScanMigrations("migrations")
		var mErr *Error
		if !errors.As(err, &mErr) || mErr.Stage != StageFile {
			t.Fatalf("expected file stage error, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	sql := "-- header\nCREATE TABLE a (id TEXT);\n\n-- comment only;\nCREATE INDEX idx_a ON a (id);\n"
	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a (id)" {
		t.Fatalf("unexpected statement: %q", statements[1])
	}
}
