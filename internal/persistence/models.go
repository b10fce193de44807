package persistence

import "time"

// Member represents an organization member profile.
type Member struct {
	ID                 string
	DisplayName        string
	Role               string
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

// Event represents a calendar entry stored in persistence.
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

// Vacation is a date-only, inclusive absence range owned by a member.
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

// Attendance records a member's declared participation in an event.
type Attendance struct {
	ID                string
	EventID           string
	MemberID          string
	Status            string
	RequiresExemption bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
