package persistence

import (
	"context"
	"time"
)

// MemberRepository stores member profiles. Members are never hard-deleted.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	UpdateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// OrganizationUnitRepository stores organization units.
type OrganizationUnitRepository interface {
	CreateOrganizationUnit(ctx context.Context, unit OrganizationUnit) error
	UpdateOrganizationUnit(ctx context.Context, unit OrganizationUnit) error
	GetOrganizationUnit(ctx context.Context, id string) (OrganizationUnit, error)
	ListOrganizationUnits(ctx context.Context) ([]OrganizationUnit, error)
	// DeleteOrganizationUnit removes the unit and clears the unit reference of
	// every member pointing at it in the same transaction. It returns the
	// number of members that were detached.
	DeleteOrganizationUnit(ctx context.Context, id string) (int, error)
}

// EventFilter narrows event queries. Nil bounds are open.
type EventFilter struct {
	// StartsBefore keeps events whose start is before the instant.
	StartsBefore *time.Time
	// EndsAfter keeps events whose end is at or after the instant.
	EndsAfter *time.Time
	IDs       []string
}

// EventRepository stores calendar events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// AbsenceFilter narrows vacation and unavailable-day queries. Dates are inclusive.
type AbsenceFilter struct {
	MemberID *string
	From     *time.Time
	To       *time.Time
}

// AbsenceRepository stores vacations and unavailable days.
type AbsenceRepository interface {
	CreateVacation(ctx context.Context, vacation Vacation) error
	GetVacation(ctx context.Context, id string) (Vacation, error)
	ListVacations(ctx context.Context, filter AbsenceFilter) ([]Vacation, error)
	DeleteVacation(ctx context.Context, id string) error

	CreateUnavailableDay(ctx context.Context, day UnavailableDay) error
	GetUnavailableDay(ctx context.Context, id string) (UnavailableDay, error)
	ListUnavailableDays(ctx context.Context, filter AbsenceFilter) ([]UnavailableDay, error)
	DeleteUnavailableDay(ctx context.Context, id string) error
}

// AttendanceFilter narrows attendance queries.
type AttendanceFilter struct {
	EventIDs          []string
	MemberID          *string
	RequiresExemption *bool
}

// AttendanceRepository stores at most one attendance per (event, member) pair.
type AttendanceRepository interface {
	// UpsertAttendance inserts the attendance or, when the pair already
	// exists, overwrites status and update time in place. An existing
	// exemption flag is kept unless the new status is "absent", which clears it.
	UpsertAttendance(ctx context.Context, attendance Attendance) (Attendance, error)
	// UpdateAttendanceExemption sets the exemption flag of a non-absent
	// attendance. It returns ErrNotFound when no such attendance exists.
	UpdateAttendanceExemption(ctx context.Context, eventID, memberID string, requiresExemption bool, updatedAt time.Time) (Attendance, error)
	GetAttendance(ctx context.Context, eventID, memberID string) (Attendance, error)
	ListAttendances(ctx context.Context, filter AttendanceFilter) ([]Attendance, error)
	// DeleteAttendance removes the pair and reports whether a row existed.
	DeleteAttendance(ctx context.Context, eventID, memberID string) (bool, error)
}
