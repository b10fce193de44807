package testfixtures

import (
	"testing"
	"time"

	"github.com/airbussard/jvc/internal/application"
)

// Services bundles application services wired to a SQLite harness with a
// controllable clock and deterministic identifiers.
type Services struct {
	Harness *SQLiteHarness
	Clock   *Clock
	IDs     *IDGenerator

	Members           *application.MemberService
	OrganizationUnits *application.OrganizationUnitService
	Events            *application.EventService
	Absences          *application.AbsenceService
	Attendances       *application.AttendanceService
	Timeline          *application.TimelineService
	Exemptions        *application.ExemptionReportService
}

// NewServices builds every application service over a fresh database. Report
// months and date labels use loc; nil selects UTC.
func NewServices(tb testing.TB, loc *time.Location) *Services {
	tb.Helper()

	if loc == nil {
		loc = time.UTC
	}
	harness := NewSQLiteHarness(tb)
	clock := NewClock(time.Time{})
	ids := NewIDGenerator("id")
	stores := harness.Stores
	now := clock.NowFunc()

	return &Services{
		Harness:           harness,
		Clock:             clock,
		IDs:               ids,
		Members:           application.NewMemberService(stores.Members, stores.OrganizationUnits, ids.NextFunc(), now),
		OrganizationUnits: application.NewOrganizationUnitService(stores.OrganizationUnits, ids.NextFunc(), now),
		Events:            application.NewEventService(stores.Events, ids.NextFunc(), now),
		Absences:          application.NewAbsenceService(stores.Absences, stores.Members, ids.NextFunc(), now),
		Attendances:       application.NewAttendanceService(stores.Attendances, stores.Events, stores.Members, ids.NextFunc(), now),
		Timeline:          application.NewTimelineService(stores.Events, stores.Absences, stores.Attendances, stores.Members, loc),
		Exemptions:        application.NewExemptionReportService(stores.Attendances, stores.Events, stores.Members, stores.OrganizationUnits, now, loc),
	}
}
