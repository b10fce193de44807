package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/persistence"
)

var (
	memberCounter     uint64
	unitCounter       uint64
	eventCounter      uint64
	attendanceCounter uint64
	absenceCounter    uint64
)

var referenceTime = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Date returns midnight UTC of the given day, the storage form of date-only values.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ----------------------------- Member fixtures -----------------------------

// MemberFixture is a deterministic member record.
type MemberFixture struct {
	ID                 string
	DisplayName        string
	Role               application.Role
	OrganizationUnitID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a member fixture with the normal role and no unit.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MemberFixture{
		ID:          fmt.Sprintf("member-%03d", idx),
		DisplayName: fmt.Sprintf("Mitglied %03d", idx),
		Role:        application.RoleNormal,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID overrides the generated member ID.
func WithMemberID(id string) MemberOption {
	return func(f *MemberFixture) { f.ID = id }
}

// WithMemberName overrides the display name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.DisplayName = name }
}

// WithMemberRole sets the role.
func WithMemberRole(role application.Role) MemberOption {
	return func(f *MemberFixture) { f.Role = role }
}

// WithMemberUnit assigns the member to a unit.
func WithMemberUnit(unitID string) MemberOption {
	return func(f *MemberFixture) {
		id := unitID
		f.OrganizationUnitID = &id
	}
}

// Application materialises the fixture as an application member.
func (f MemberFixture) Application() application.Member {
	return application.Member{
		ID:                 f.ID,
		DisplayName:        f.DisplayName,
		Role:               f.Role,
		OrganizationUnitID: copyString(f.OrganizationUnitID),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence materialises the fixture as a persistence member.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		ID:                 f.ID,
		DisplayName:        f.DisplayName,
		Role:               string(f.Role),
		OrganizationUnitID: copyString(f.OrganizationUnitID),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Principal returns the request identity of the member.
func (f MemberFixture) Principal() application.Principal {
	return application.Principal{MemberID: f.ID, Role: f.Role, OrganizationUnitID: copyString(f.OrganizationUnitID)}
}

// ------------------------- Organization unit fixtures -------------------------

// UnitFixture is a deterministic organization unit.
type UnitFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// UnitOption configures the generated unit fixture.
type UnitOption func(*UnitFixture)

// NewUnitFixture returns an organization unit fixture.
func NewUnitFixture(opts ...UnitOption) UnitFixture {
	idx := atomic.AddUint64(&unitCounter, 1)
	fixture := UnitFixture{
		ID:        fmt.Sprintf("unit-%03d", idx),
		Name:      fmt.Sprintf("Arbeitgeber %03d", idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUnitID overrides the generated unit ID.
func WithUnitID(id string) UnitOption {
	return func(f *UnitFixture) { f.ID = id }
}

// WithUnitName overrides the unit name.
func WithUnitName(name string) UnitOption {
	return func(f *UnitFixture) { f.Name = name }
}

// Persistence materialises the fixture as a persistence unit.
func (f UnitFixture) Persistence() persistence.OrganizationUnit {
	return persistence.OrganizationUnit{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt, UpdatedAt: f.CreatedAt}
}

// Application materialises the fixture as an application unit.
func (f UnitFixture) Application() application.OrganizationUnit {
	return application.OrganizationUnit(f.Persistence())
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic event, one hour long by default.
type EventFixture struct {
	ID        string
	Title     string
	Location  string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Color     string
	CreatedBy string
	CreatedAt time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an event starting one day after the reference time.
// The creator must exist before the event is stored.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(24 * time.Hour)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		Title:     fmt.Sprintf("Sitzung %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Color:     "#3b82f6",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) { f.Title = title }
}

// WithEventWindow sets start and end.
func WithEventWindow(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventAllDay marks the event as all-day.
func WithEventAllDay() EventOption {
	return func(f *EventFixture) { f.AllDay = true }
}

// WithEventCreator records the creating member.
func WithEventCreator(memberID string) EventOption {
	return func(f *EventFixture) { f.CreatedBy = memberID }
}

// Persistence materialises the fixture as a persistence event.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		Title:     f.Title,
		Location:  f.Location,
		Start:     f.Start,
		End:       f.End,
		AllDay:    f.AllDay,
		Color:     f.Color,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Application materialises the fixture as an application event.
func (f EventFixture) Application() application.Event {
	return application.Event(f.Persistence())
}

// --------------------------- Attendance fixtures ---------------------------

// AttendanceFixture is a deterministic attendance declaration.
type AttendanceFixture struct {
	ID                string
	EventID           string
	MemberID          string
	Status            application.AttendanceStatus
	RequiresExemption bool
	UpdatedAt         time.Time
}

// AttendanceOption configures the generated attendance fixture.
type AttendanceOption func(*AttendanceFixture)

// NewAttendanceFixture returns an on-site attendance of memberID for eventID.
func NewAttendanceFixture(eventID, memberID string, opts ...AttendanceOption) AttendanceFixture {
	idx := atomic.AddUint64(&attendanceCounter, 1)
	fixture := AttendanceFixture{
		ID:        fmt.Sprintf("attendance-%03d", idx),
		EventID:   eventID,
		MemberID:  memberID,
		Status:    application.AttendanceOnsite,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAttendanceStatus sets the declared status.
func WithAttendanceStatus(status application.AttendanceStatus) AttendanceOption {
	return func(f *AttendanceFixture) { f.Status = status }
}

// WithExemption sets the exemption flag.
func WithExemption(required bool) AttendanceOption {
	return func(f *AttendanceFixture) { f.RequiresExemption = required }
}

// WithAttendanceUpdatedAt sets the modification time.
func WithAttendanceUpdatedAt(t time.Time) AttendanceOption {
	return func(f *AttendanceFixture) { f.UpdatedAt = t }
}

// Persistence materialises the fixture as a persistence attendance.
func (f AttendanceFixture) Persistence() persistence.Attendance {
	return persistence.Attendance{
		ID:                f.ID,
		EventID:           f.EventID,
		MemberID:          f.MemberID,
		Status:            string(f.Status),
		RequiresExemption: f.RequiresExemption,
		CreatedAt:         f.UpdatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// Application materialises the fixture as an application attendance.
func (f AttendanceFixture) Application() application.Attendance {
	return application.Attendance{
		ID:                f.ID,
		EventID:           f.EventID,
		MemberID:          f.MemberID,
		Status:            f.Status,
		RequiresExemption: f.RequiresExemption,
		CreatedAt:         f.UpdatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// ----------------------------- Absence fixtures -----------------------------

// NewVacation returns a vacation of memberID covering start through end.
func NewVacation(memberID string, start, end time.Time) persistence.Vacation {
	idx := atomic.AddUint64(&absenceCounter, 1)
	return persistence.Vacation{
		ID:        fmt.Sprintf("vacation-%03d", idx),
		MemberID:  memberID,
		StartDate: start,
		EndDate:   end,
		CreatedAt: referenceTime,
	}
}

// NewUnavailableDay returns an unavailable day of memberID.
func NewUnavailableDay(memberID string, date time.Time) persistence.UnavailableDay {
	idx := atomic.AddUint64(&absenceCounter, 1)
	return persistence.UnavailableDay{
		ID:        fmt.Sprintf("unavailable-%03d", idx),
		MemberID:  memberID,
		Date:      date,
		CreatedAt: referenceTime,
	}
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
