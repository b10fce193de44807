package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/persistence"
	"github.com/airbussard/jvc/internal/testfixtures"
)

func TestMemberRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads and updates members", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		unit := testfixtures.NewUnitFixture()
		harness.SeedUnits(t, unit)

		member := testfixtures.NewMemberFixture(
			testfixtures.WithMemberName("Anna"),
			testfixtures.WithMemberRole(application.RoleModerator),
			testfixtures.WithMemberUnit(unit.ID),
		).Persistence()
		if err := harness.Members.CreateMember(ctx, member); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}

		fetched, err := harness.Members.GetMember(ctx, member.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if fetched.DisplayName != "Anna" || fetched.Role != "moderator" || fetched.OrganizationUnitID == nil || *fetched.OrganizationUnitID != unit.ID {
			t.Fatalf("unexpected member data: %#v", fetched)
		}

		member.OrganizationUnitID = nil
		member.UpdatedAt = member.UpdatedAt.Add(time.Hour)
		if err := harness.Members.UpdateMember(ctx, member); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		fetched, err = harness.Members.GetMember(ctx, member.ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if fetched.OrganizationUnitID != nil {
			t.Fatalf("expected unit cleared, got %v", *fetched.OrganizationUnitID)
		}

		if _, err := harness.Members.GetMember(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects unknown unit references", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		member := testfixtures.NewMemberFixture(testfixtures.WithMemberUnit("unit-404")).Persistence()

		err := harness.Members.CreateMember(context.Background(), member)
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected persistence.ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		member := testfixtures.NewMemberFixture(testfixtures.WithMemberRole("owner")).Persistence()

		err := harness.Members.CreateMember(context.Background(), member)
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
		}
	})
}

func TestOrganizationUnitRepository(t *testing.T) {
	t.Parallel()

	t.Run("delete detaches every member", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		unit := testfixtures.NewUnitFixture()
		other := testfixtures.NewUnitFixture()
		harness.SeedUnits(t, unit, other)

		members := []testfixtures.MemberFixture{
			testfixtures.NewMemberFixture(testfixtures.WithMemberUnit(unit.ID)),
			testfixtures.NewMemberFixture(testfixtures.WithMemberUnit(unit.ID)),
			testfixtures.NewMemberFixture(testfixtures.WithMemberUnit(unit.ID)),
			testfixtures.NewMemberFixture(testfixtures.WithMemberUnit(other.ID)),
		}
		harness.SeedMembers(t, members...)

		detached, err := harness.OrganizationUnits.DeleteOrganizationUnit(ctx, unit.ID)
		if err != nil {
			t.Fatalf("DeleteOrganizationUnit failed: %v", err)
		}
		if detached != 3 {
			t.Fatalf("expected 3 detached members, got %d", detached)
		}

		for _, m := range members[:3] {
			fetched, err := harness.Members.GetMember(ctx, m.ID)
			if err != nil {
				t.Fatalf("GetMember(%s) failed: %v", m.ID, err)
			}
			if fetched.OrganizationUnitID != nil {
				t.Fatalf("expected %s detached, got %v", m.ID, *fetched.OrganizationUnitID)
			}
		}
		untouched, err := harness.Members.GetMember(ctx, members[3].ID)
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if untouched.OrganizationUnitID == nil || *untouched.OrganizationUnitID != other.ID {
			t.Fatalf("expected member of other unit untouched, got %#v", untouched)
		}

		if _, err := harness.OrganizationUnits.GetOrganizationUnit(ctx, unit.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected unit gone, got %v", err)
		}
	})

	t.Run("delete of a missing unit detaches nobody", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		detached, err := harness.OrganizationUnits.DeleteOrganizationUnit(context.Background(), "unit-404")
		if !errors.Is(err, persistence.ErrNotFound) || detached != 0 {
			t.Fatalf("expected ErrNotFound and 0, got %d, %v", detached, err)
		}
	})

	t.Run("names are unique", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		harness.SeedUnits(t, testfixtures.NewUnitFixture(testfixtures.WithUnitName("Stadtwerke")))

		err := harness.OrganizationUnits.CreateOrganizationUnit(context.Background(),
			testfixtures.NewUnitFixture(testfixtures.WithUnitName("Stadtwerke")).Persistence())
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})
}

func TestEventRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	creator := testfixtures.NewMemberFixture()
	harness.SeedMembers(t, creator)

	day := func(d, h int) time.Time { return time.Date(2024, time.March, d, h, 0, 0, 0, time.UTC) }
	early := testfixtures.NewEventFixture(testfixtures.WithEventCreator(creator.ID), testfixtures.WithEventWindow(day(1, 10), day(1, 12)))
	inside := testfixtures.NewEventFixture(testfixtures.WithEventCreator(creator.ID), testfixtures.WithEventWindow(day(10, 18), day(10, 20)))
	spanning := testfixtures.NewEventFixture(testfixtures.WithEventCreator(creator.ID), testfixtures.WithEventWindow(day(4, 9), day(6, 9)))
	harness.SeedEvents(t, early, inside, spanning)

	t.Run("lists events overlapping the window in start order", func(t *testing.T) {
		from, to := day(5, 0), day(11, 0)
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{StartsBefore: &to, EndsAfter: &from})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) != 2 || events[0].ID != spanning.ID || events[1].ID != inside.ID {
			t.Fatalf("unexpected events: %#v", events)
		}
		if !events[1].Start.Equal(inside.Start) || events[1].Color != inside.Color {
			t.Fatalf("unexpected event data: %#v", events[1])
		}
	})

	t.Run("lists events by id", func(t *testing.T) {
		events, err := harness.Events.ListEvents(ctx, persistence.EventFilter{IDs: []string{early.ID, inside.ID}})
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) != 2 || events[0].ID != early.ID {
			t.Fatalf("unexpected events: %#v", events)
		}
	})

	t.Run("rejects inverted windows and unknown creators", func(t *testing.T) {
		inverted := testfixtures.NewEventFixture(testfixtures.WithEventCreator(creator.ID), testfixtures.WithEventWindow(day(2, 12), day(2, 10)))
		if err := harness.Events.CreateEvent(ctx, inverted.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
		}
		orphan := testfixtures.NewEventFixture(testfixtures.WithEventCreator("member-404"))
		if err := harness.Events.CreateEvent(ctx, orphan.Persistence()); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected persistence.ErrForeignKeyViolation, got %v", err)
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*testfixtures.SQLiteHarness, testfixtures.EventFixture, testfixtures.MemberFixture) {
		t.Helper()
		harness := testfixtures.NewSQLiteHarness(t)
		member := testfixtures.NewMemberFixture()
		harness.SeedMembers(t, member)
		event := testfixtures.NewEventFixture(testfixtures.WithEventCreator(member.ID))
		harness.SeedEvents(t, event)
		return harness, event, member
	}

	t.Run("upsert keeps the flag until the member is absent", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness, event, member := setup(t)

		first := testfixtures.NewAttendanceFixture(event.ID, member.ID)
		stored, err := harness.Attendances.UpsertAttendance(ctx, first.Persistence())
		if err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}
		if stored.RequiresExemption {
			t.Fatalf("expected new attendance without exemption")
		}

		later := testfixtures.ReferenceTime().Add(time.Hour)
		if _, err := harness.Attendances.UpdateAttendanceExemption(ctx, event.ID, member.ID, true, later); err != nil {
			t.Fatalf("UpdateAttendanceExemption failed: %v", err)
		}

		hybrid := testfixtures.NewAttendanceFixture(event.ID, member.ID,
			testfixtures.WithAttendanceStatus(application.AttendanceHybrid),
			testfixtures.WithAttendanceUpdatedAt(later.Add(time.Hour)),
		)
		stored, err = harness.Attendances.UpsertAttendance(ctx, hybrid.Persistence())
		if err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}
		if stored.ID != first.ID || stored.Status != "attending_hybrid" || !stored.RequiresExemption {
			t.Fatalf("expected same row with kept flag, got %#v", stored)
		}
		if !stored.CreatedAt.Equal(first.UpdatedAt) || !stored.UpdatedAt.Equal(later.Add(time.Hour)) {
			t.Fatalf("unexpected timestamps: %#v", stored)
		}

		absent := testfixtures.NewAttendanceFixture(event.ID, member.ID,
			testfixtures.WithAttendanceStatus(application.AttendanceAbsent),
			testfixtures.WithExemption(true),
		)
		stored, err = harness.Attendances.UpsertAttendance(ctx, absent.Persistence())
		if err != nil {
			t.Fatalf("UpsertAttendance failed: %v", err)
		}
		if stored.RequiresExemption {
			t.Fatalf("expected absent to clear the flag")
		}
	})

	t.Run("exemption update skips absent and missing attendances", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness, event, member := setup(t)
		now := testfixtures.ReferenceTime()

		if _, err := harness.Attendances.UpdateAttendanceExemption(ctx, event.ID, member.ID, true, now); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound for missing attendance, got %v", err)
		}

		harness.SeedAttendances(t, testfixtures.NewAttendanceFixture(event.ID, member.ID,
			testfixtures.WithAttendanceStatus(application.AttendanceAbsent)))
		if _, err := harness.Attendances.UpdateAttendanceExemption(ctx, event.ID, member.ID, true, now); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound for absent attendance, got %v", err)
		}
	})

	t.Run("filters and cascades with the event", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness, event, member := setup(t)
		other := testfixtures.NewMemberFixture()
		harness.SeedMembers(t, other)
		harness.SeedAttendances(t,
			testfixtures.NewAttendanceFixture(event.ID, member.ID, testfixtures.WithExemption(true)),
			testfixtures.NewAttendanceFixture(event.ID, other.ID),
		)

		flagged := true
		list, err := harness.Attendances.ListAttendances(ctx, persistence.AttendanceFilter{RequiresExemption: &flagged})
		if err != nil {
			t.Fatalf("ListAttendances failed: %v", err)
		}
		if len(list) != 1 || list[0].MemberID != member.ID {
			t.Fatalf("expected only flagged attendance, got %#v", list)
		}

		list, err = harness.Attendances.ListAttendances(ctx, persistence.AttendanceFilter{EventIDs: []string{event.ID}, MemberID: &other.ID})
		if err != nil {
			t.Fatalf("ListAttendances failed: %v", err)
		}
		if len(list) != 1 || list[0].MemberID != other.ID {
			t.Fatalf("expected other's attendance, got %#v", list)
		}

		removed, err := harness.Attendances.DeleteAttendance(ctx, event.ID, other.ID)
		if err != nil || !removed {
			t.Fatalf("expected removal, got %v, %v", removed, err)
		}
		removed, err = harness.Attendances.DeleteAttendance(ctx, event.ID, other.ID)
		if err != nil || removed {
			t.Fatalf("expected idempotent removal, got %v, %v", removed, err)
		}

		if err := harness.Events.DeleteEvent(ctx, event.ID); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}
		if _, err := harness.Attendances.GetAttendance(ctx, event.ID, member.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected attendance removed with event, got %v", err)
		}
	})
}

func TestAbsenceRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	member := testfixtures.NewMemberFixture()
	harness.SeedMembers(t, member)

	march := testfixtures.NewVacation(member.ID, testfixtures.Date(2024, time.March, 20), testfixtures.Date(2024, time.March, 22))
	june := testfixtures.NewVacation(member.ID, testfixtures.Date(2024, time.June, 1), testfixtures.Date(2024, time.June, 14))
	for _, v := range []persistence.Vacation{march, june} {
		if err := harness.Absences.CreateVacation(ctx, v); err != nil {
			t.Fatalf("CreateVacation failed: %v", err)
		}
	}

	t.Run("vacations overlap an inclusive range", func(t *testing.T) {
		from, to := testfixtures.Date(2024, time.March, 22), testfixtures.Date(2024, time.March, 31)
		vacations, err := harness.Absences.ListVacations(ctx, persistence.AbsenceFilter{MemberID: &member.ID, From: &from, To: &to})
		if err != nil {
			t.Fatalf("ListVacations failed: %v", err)
		}
		if len(vacations) != 1 || vacations[0].ID != march.ID || !vacations[0].EndDate.Equal(march.EndDate) {
			t.Fatalf("unexpected vacations: %#v", vacations)
		}
	})

	t.Run("one unavailable day per member and date", func(t *testing.T) {
		day := testfixtures.NewUnavailableDay(member.ID, testfixtures.Date(2024, time.May, 2))
		if err := harness.Absences.CreateUnavailableDay(ctx, day); err != nil {
			t.Fatalf("CreateUnavailableDay failed: %v", err)
		}
		again := testfixtures.NewUnavailableDay(member.ID, testfixtures.Date(2024, time.May, 2))
		if err := harness.Absences.CreateUnavailableDay(ctx, again); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}

		if err := harness.Absences.DeleteUnavailableDay(ctx, day.ID); err != nil {
			t.Fatalf("DeleteUnavailableDay failed: %v", err)
		}
		if err := harness.Absences.DeleteUnavailableDay(ctx, day.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
	})

	t.Run("inverted vacations are rejected", func(t *testing.T) {
		inverted := testfixtures.NewVacation(member.ID, testfixtures.Date(2024, time.July, 5), testfixtures.Date(2024, time.July, 1))
		if err := harness.Absences.CreateVacation(ctx, inverted); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
		}
	})
}
