package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/airbussard/jvc/internal/persistence"
	"github.com/airbussard/jvc/internal/persistence/sqlite"
	"github.com/airbussard/jvc/internal/storage"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database.
type SQLiteHarness struct {
	Members           persistence.MemberRepository
	OrganizationUnits persistence.OrganizationUnitRepository
	Events            persistence.EventRepository
	Absences          persistence.AbsenceRepository
	Attendances       persistence.AttendanceRepository

	// Stores exposes the same database through the application adapters.
	Stores storage.Stores

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database file in a temporary
// directory. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "jvc.db")
	db, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Members:           db.Members,
		OrganizationUnits: db.OrganizationUnits,
		Events:            db.Events,
		Absences:          db.Absences,
		Attendances:       db.Attendances,
		Stores:            storage.FromSQLite(db),
		cleanup: func() {
			_ = db.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedMembers stores the given member fixtures and fails the test on error.
func (h *SQLiteHarness) SeedMembers(tb testing.TB, members ...MemberFixture) {
	tb.Helper()
	for _, m := range members {
		if err := h.Members.CreateMember(context.Background(), m.Persistence()); err != nil {
			tb.Fatalf("seed member %s: %v", m.ID, err)
		}
	}
}

// SeedUnits stores the given unit fixtures.
func (h *SQLiteHarness) SeedUnits(tb testing.TB, units ...UnitFixture) {
	tb.Helper()
	for _, u := range units {
		if err := h.OrganizationUnits.CreateOrganizationUnit(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("seed unit %s: %v", u.ID, err)
		}
	}
}

// SeedEvents stores the given event fixtures.
func (h *SQLiteHarness) SeedEvents(tb testing.TB, events ...EventFixture) {
	tb.Helper()
	for _, e := range events {
		if err := h.Events.CreateEvent(context.Background(), e.Persistence()); err != nil {
			tb.Fatalf("seed event %s: %v", e.ID, err)
		}
	}
}

// SeedAttendances stores the given attendance fixtures.
func (h *SQLiteHarness) SeedAttendances(tb testing.TB, attendances ...AttendanceFixture) {
	tb.Helper()
	for _, a := range attendances {
		if _, err := h.Attendances.UpsertAttendance(context.Background(), a.Persistence()); err != nil {
			tb.Fatalf("seed attendance %s/%s: %v", a.EventID, a.MemberID, err)
		}
	}
}
