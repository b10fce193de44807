package application

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/airbussard/jvc/internal/timeline"
)

type eventCatalogStub struct {
	events    []Event
	err       error
	lastQuery EventQuery
}

func (s *eventCatalogStub) ListEvents(ctx context.Context, query EventQuery) ([]Event, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	var out []Event
	for _, e := range s.events {
		if len(query.IDs) > 0 && !containsString(query.IDs, e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type absenceListerStub struct {
	vacations []Vacation
	days      []UnavailableDay
	queries   []AbsenceQuery
}

func (s *absenceListerStub) ListVacations(ctx context.Context, query AbsenceQuery) ([]Vacation, error) {
	s.queries = append(s.queries, query)
	var out []Vacation
	for _, v := range s.vacations {
		if query.MemberID == nil || *query.MemberID == v.MemberID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *absenceListerStub) ListUnavailableDays(ctx context.Context, query AbsenceQuery) ([]UnavailableDay, error) {
	s.queries = append(s.queries, query)
	var out []UnavailableDay
	for _, d := range s.days {
		if query.MemberID == nil || *query.MemberID == d.MemberID {
			out = append(out, d)
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTimelineFixture() (*TimelineService, *eventCatalogStub, *absenceListerStub, *attendanceRepoStub) {
	events := &eventCatalogStub{events: []Event{
		{ID: "ev-1", Title: "Plenum", Start: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)},
		{ID: "ev-2", Title: "Ausschuss", Start: time.Date(2024, time.March, 6, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC), Color: "#112233"},
	}}
	absences := &absenceListerStub{
		vacations: []Vacation{{ID: "v-1", MemberID: "m-2", StartDate: day(2024, time.March, 4), EndDate: day(2024, time.March, 6)}},
		days:      []UnavailableDay{{ID: "u-1", MemberID: "m-1", Date: day(2024, time.March, 5)}},
	}
	attendances := newAttendanceRepoStub(
		Attendance{ID: "att-1", EventID: "ev-1", MemberID: "m-1", Status: AttendanceOnsite},
		Attendance{ID: "att-2", EventID: "ev-2", MemberID: "m-2", Status: AttendanceOnsite},
	)
	members := &memberDirectoryStub{members: []Member{
		{ID: "m-1", DisplayName: "Anna"},
		{ID: "m-2", DisplayName: "Bernd"},
	}}
	return NewTimelineService(events, absences, attendances, members, time.UTC), events, absences, attendances
}

func TestTimelineService_Timeline(t *testing.T) {
	viewer := Principal{MemberID: "m-1", Role: RoleNormal}
	from := day(2024, time.March, 1)
	to := day(2024, time.April, 1)

	t.Run("rejects inverted window", func(t *testing.T) {
		svc, _, _, _ := newTimelineFixture()

		_, err := svc.Timeline(context.Background(), TimelineParams{Principal: viewer, From: to, To: from})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects unknown absence scope", func(t *testing.T) {
		svc, _, _, _ := newTimelineFixture()

		_, err := svc.Timeline(context.Background(), TimelineParams{
			Principal: viewer, From: from, To: to,
			Filter: timeline.Filter{ShowAbsences: true, AbsenceScope: "m-404"},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["absence_scope"]; !ok {
			t.Fatalf("expected absence_scope error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("marks viewer attendance and loads window", func(t *testing.T) {
		svc, events, _, attendances := newTimelineFixture()

		items, err := svc.Timeline(context.Background(), TimelineParams{Principal: viewer, From: from, To: to})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected two event items, got %d", len(items))
		}
		if !items[0].HasMyAttendance || !items[0].Emphasized {
			t.Fatalf("expected viewer attendance on first event, got %+v", items[0])
		}
		if items[1].HasMyAttendance {
			t.Fatalf("expected no viewer attendance on second event, got %+v", items[1])
		}
		if events.lastQuery.StartsBefore == nil || !events.lastQuery.StartsBefore.Equal(to) {
			t.Fatalf("expected events bounded by window end, got %+v", events.lastQuery)
		}
		if attendances.lastQuery.MemberID == nil || *attendances.lastQuery.MemberID != "m-1" {
			t.Fatalf("expected attendances of viewer only, got %+v", attendances.lastQuery)
		}
	})

	t.Run("only my events with own absences", func(t *testing.T) {
		svc, _, absences, _ := newTimelineFixture()

		items, err := svc.Timeline(context.Background(), TimelineParams{
			Principal: viewer, From: from, To: to,
			Filter: timeline.Filter{OnlyMyEvents: true, ShowAbsences: true, AbsenceScope: timeline.ScopeMine},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected event and unavailable day, got %+v", items)
		}
		if items[0].Category != timeline.CategoryUnavailable || items[1].Category != timeline.CategoryEvent {
			t.Fatalf("expected unavailable day before event, got %s then %s", items[0].Category, items[1].Category)
		}
		if items[0].Title != "🚫 Anna - F-Tag" {
			t.Fatalf("unexpected title %q", items[0].Title)
		}
		for _, q := range absences.queries {
			if q.MemberID == nil || *q.MemberID != "m-1" {
				t.Fatalf("expected absence query scoped to viewer, got %+v", q)
			}
		}
	})
}

func TestTimelineService_LocalWindow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	events := &eventCatalogStub{}
	absences := &absenceListerStub{
		days: []UnavailableDay{
			{ID: "u-feb", MemberID: "m-1", Date: day(2024, time.February, 29)},
			{ID: "u-mar", MemberID: "m-1", Date: day(2024, time.March, 1)},
		},
	}
	members := &memberDirectoryStub{members: []Member{{ID: "m-1", DisplayName: "Anna"}}}
	svc := NewTimelineService(events, absences, newAttendanceRepoStub(), members, berlin)

	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, berlin)
	to := from.AddDate(0, 1, 0)

	items, err := svc.Timeline(context.Background(), TimelineParams{
		Principal: Principal{MemberID: "m-1"}, From: from, To: to,
		Filter: timeline.Filter{ShowAbsences: true},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(items) != 1 || items[0].SourceID != "u-mar" {
		t.Fatalf("expected only the March day, got %+v", items)
	}
	q := absences.queries[0]
	if q.From == nil || !q.From.Equal(day(2024, time.March, 1)) || q.To == nil || !q.To.Equal(day(2024, time.March, 31)) {
		t.Fatalf("expected local date bounds, got %+v", q)
	}

	summary, err := svc.Availability(context.Background(), AvailabilityParams{Principal: Principal{MemberID: "m-1"}, From: from, To: to})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(summary) != 1 || summary[0].UnavailableDays != 1 {
		t.Fatalf("expected one unavailable day, got %+v", summary)
	}
}

func TestTimelineService_Availability(t *testing.T) {
	svc, _, _, _ := newTimelineFixture()

	summary, err := svc.Availability(context.Background(), AvailabilityParams{
		Principal: Principal{MemberID: "m-1"},
		From:      day(2024, time.March, 1),
		To:        day(2024, time.April, 1),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected two members, got %+v", summary)
	}
	if summary[0].Name != "Anna" || summary[0].UnavailableDays != 1 {
		t.Fatalf("unexpected first entry %+v", summary[0])
	}
	if summary[1].Name != "Bernd" || summary[1].Vacations != 1 {
		t.Fatalf("unexpected second entry %+v", summary[1])
	}

	if _, err := svc.Availability(context.Background(), AvailabilityParams{Principal: Principal{}, From: day(2024, time.March, 1), To: day(2024, time.April, 1)}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without principal, got %v", err)
	}
}
