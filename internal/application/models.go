package application

import (
	"time"

	"github.com/airbussard/jvc/internal/exemption"
	"github.com/airbussard/jvc/internal/timeline"
)

// Role is a member's permission level.
type Role string

const (
	RoleNormal    Role = "normal"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Principal is the caller identity supplied by the authentication gate.
type Principal struct {
	MemberID           string
	Role               Role
	OrganizationUnitID *string
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageEvents reports whether the principal may mutate events.
func (p Principal) CanManageEvents() bool {
	return p.Role == RoleAdmin || p.Role == RoleModerator
}

// actsFor reports whether the principal may act on records owned by memberID.
func (p Principal) actsFor(memberID string) bool {
	return p.IsAdmin() || (p.MemberID != "" && p.MemberID == memberID)
}

// Member is an organization member profile.
type Member struct {
	ID                 string
	DisplayName        string
	Role               Role
	OrganizationUnitID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrganizationUnit groups members, e.g. by employer.
type OrganizationUnit struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a calendar entry.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Color       string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Vacation is an inclusive, date-only absence range. Dates are midnight UTC.
type Vacation struct {
	ID        string
	MemberID  string
	StartDate time.Time
	EndDate   time.Time
	Note      *string
	CreatedAt time.Time
}

// UnavailableDay is a single date on which a member is unavailable.
type UnavailableDay struct {
	ID        string
	MemberID  string
	Date      time.Time
	Reason    *string
	CreatedAt time.Time
}

// AttendanceStatus is the declared participation of a member in an event.
type AttendanceStatus string

const (
	AttendanceOnsite AttendanceStatus = "attending_onsite"
	AttendanceHybrid AttendanceStatus = "attending_hybrid"
	AttendanceAbsent AttendanceStatus = "absent"
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceOnsite, AttendanceHybrid, AttendanceAbsent:
		return true
	}
	return false
}

// Attendance records a member's declaration for an event.
type Attendance struct {
	ID                string
	EventID           string
	MemberID          string
	Status            AttendanceStatus
	RequiresExemption bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RosterEntry is an attendance joined with the member's display name.
type RosterEntry struct {
	Attendance Attendance
	MemberName string
}

// DeclareAttendanceParams wraps the data required to declare an attendance.
type DeclareAttendanceParams struct {
	Principal Principal
	EventID   string
	MemberID  string
	Status    AttendanceStatus
}

// SetExemptionParams wraps the data required to toggle the exemption flag.
type SetExemptionParams struct {
	Principal         Principal
	EventID           string
	MemberID          string
	RequiresExemption bool
}

// WithdrawAttendanceParams wraps the data required to remove an attendance.
type WithdrawAttendanceParams struct {
	Principal Principal
	EventID   string
	MemberID  string
}

// TimelineParams wraps a timeline request.
type TimelineParams struct {
	Principal Principal
	From      time.Time
	To        time.Time
	Filter    timeline.Filter
}

// AvailabilityParams wraps an availability overview request.
type AvailabilityParams struct {
	Principal Principal
	From      time.Time
	To        time.Time
}

// ReportParams wraps an exemption report request. Unit is "all", "none" or a
// unit id. Month is empty or YYYY-MM.
type ReportParams struct {
	Principal Principal
	Unit      string
	Month     string
}

// ExemptionEntry is one exemption for the interactive list view.
type ExemptionEntry = exemption.Entry

// ExemptionReport is the rendered report model.
type ExemptionReport = exemption.Document

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Color       string
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListEventsParams wraps an event listing request. Nil bounds are open.
type ListEventsParams struct {
	Principal Principal
	From      *time.Time
	To        *time.Time
}

// InviteMemberParams wraps the data required to register a member.
type InviteMemberParams struct {
	Principal          Principal
	DisplayName        string
	Role               Role
	OrganizationUnitID *string
}

// UpdateMemberRoleParams wraps a role change.
type UpdateMemberRoleParams struct {
	Principal Principal
	MemberID  string
	Role      Role
}

// AssignMemberUnitParams wraps an organization unit assignment. A nil unit
// detaches the member.
type AssignMemberUnitParams struct {
	Principal          Principal
	MemberID           string
	OrganizationUnitID *string
}

// CreateOrganizationUnitParams wraps the data required to create a unit.
type CreateOrganizationUnitParams struct {
	Principal Principal
	Name      string
}

// RenameOrganizationUnitParams wraps a unit rename.
type RenameOrganizationUnitParams struct {
	Principal Principal
	UnitID    string
	Name      string
}

// CreateVacationParams wraps the data required to record a vacation.
type CreateVacationParams struct {
	Principal Principal
	MemberID  string
	StartDate time.Time
	EndDate   time.Time
	Note      *string
}

// CreateUnavailableDayParams wraps the data required to record an unavailable day.
type CreateUnavailableDayParams struct {
	Principal Principal
	MemberID  string
	Date      time.Time
	Reason    *string
}

// ListAbsencesParams wraps an absence listing. An empty MemberID lists the
// principal's own records.
type ListAbsencesParams struct {
	Principal Principal
	MemberID  string
	From      *time.Time
	To        *time.Time
}
