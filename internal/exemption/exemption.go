// Package exemption derives the list of attendances that require an exemption
// and assembles the report document handed to renderers.
package exemption

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Unit filter values. Any other value is an organization unit id.
const (
	UnitAll  = "all"
	UnitNone = "none"
)

// UnknownMemberName replaces empty or missing member names.
const UnknownMemberName = "Unbekannt"

const (
	statusOnsite = "attending_onsite"
	statusHybrid = "attending_hybrid"
)

// ErrInvalidMonth is returned by ParseMonth for values not shaped YYYY-MM.
var ErrInvalidMonth = errors.New("exemption: month must be formatted YYYY-MM")

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// Month is a calendar month used to narrow a report.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM value.
func ParseMonth(value string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// String returns the YYYY-MM form.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label returns the German month name and year, e.g. "März 2024".
func (m Month) Label() string {
	if m.Month < time.January || m.Month > time.December {
		return m.String()
	}
	return fmt.Sprintf("%s %d", germanMonths[m.Month-1], m.Year)
}

// Contains reports whether t falls in the month when viewed in loc.
func (m Month) Contains(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	return local.Year() == m.Year && local.Month() == m.Month
}

// Previous returns the month before m.
func (m Month) Previous() Month {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Month{Year: first.Year(), Month: first.Month()}
}

// MonthOf returns the month of t in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	local := t.In(orUTC(loc))
	return Month{Year: local.Year(), Month: local.Month()}
}

// Attendance is the attendance shape the builder consumes.
type Attendance struct {
	ID                string
	EventID           string
	MemberID          string
	Status            string
	RequiresExemption bool
}

// Event is the event shape the builder consumes.
type Event struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Member is the member shape the builder consumes.
type Member struct {
	ID                 string
	DisplayName        string
	OrganizationUnitID *string
}

// Unit is an organization unit.
type Unit struct {
	ID   string
	Name string
}

// Input holds the records to join. Lookups are built once per call.
type Input struct {
	Attendances []Attendance
	Events      []Event
	Members     []Member
	Units       []Unit
}

// Query selects the entries of a report.
type Query struct {
	// Unit is UnitAll, UnitNone or a unit id. Empty means UnitAll.
	Unit     string
	Month    *Month
	Location *time.Location
}

// Entry is one exemption after joining attendance, event, member and unit.
type Entry struct {
	AttendanceID string
	EventID      string
	EventTitle   string
	Start        time.Time
	End          time.Time
	AllDay       bool
	MemberID     string
	Name         string
	UnitID       *string
	UnitName     string
	DateLabel    string
}

// Select joins the qualifying attendances and returns them filtered by q and
// sorted by date label, then name. Both keys compare as plain strings.
// Attendances whose event is missing are skipped.
func Select(in Input, q Query) []Entry {
	loc := orUTC(q.Location)

	events := make(map[string]Event, len(in.Events))
	for _, e := range in.Events {
		events[e.ID] = e
	}
	members := make(map[string]Member, len(in.Members))
	for _, m := range in.Members {
		members[m.ID] = m
	}
	units := make(map[string]string, len(in.Units))
	for _, u := range in.Units {
		units[u.ID] = u.Name
	}

	candidates := make([]Attendance, 0, len(in.Attendances))
	for _, a := range in.Attendances {
		if Qualifies(a) {
			candidates = append(candidates, a)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	entries := make([]Entry, 0, len(candidates))
	for _, a := range candidates {
		event, ok := events[a.EventID]
		if !ok {
			continue
		}
		member := members[a.MemberID]
		if !matchesUnit(q.Unit, member.OrganizationUnitID) {
			continue
		}
		if q.Month != nil && !q.Month.Contains(event.Start, loc) {
			continue
		}

		name := strings.TrimSpace(member.DisplayName)
		if name == "" {
			name = UnknownMemberName
		}
		entry := Entry{
			AttendanceID: a.ID,
			EventID:      event.ID,
			EventTitle:   event.Title,
			Start:        event.Start,
			End:          event.End,
			AllDay:       event.AllDay,
			MemberID:     a.MemberID,
			Name:         name,
			UnitID:       member.OrganizationUnitID,
			DateLabel:    DateLabel(event.Start, event.End, event.AllDay, loc),
		}
		if member.OrganizationUnitID != nil {
			entry.UnitName = units[*member.OrganizationUnitID]
		}
		entries = append(entries, entry)
	}

	// The order follows the rendered label: "10.03.2024 - 12.03.2024" sorts
	// before "10.03.2024, 09:00 - 10:00", and day-first labels do not sort
	// chronologically across months.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DateLabel != entries[j].DateLabel {
			return entries[i].DateLabel < entries[j].DateLabel
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Qualifies reports whether an attendance belongs on an exemption report.
func Qualifies(a Attendance) bool {
	return a.RequiresExemption && (a.Status == statusOnsite || a.Status == statusHybrid)
}

func matchesUnit(filter string, unitID *string) bool {
	switch filter {
	case "", UnitAll:
		return true
	case UnitNone:
		return unitID == nil
	default:
		return unitID != nil && *unitID == filter
	}
}

// DateLabel renders the date of an event in loc. Events within one calendar
// day render as "dd.MM.yyyy", with ", HH:mm - HH:mm" appended when timed.
// Longer events render as "dd.MM.yyyy - dd.MM.yyyy". The end of an all-day
// event that falls exactly on midnight is exclusive.
func DateLabel(start, end time.Time, allDay bool, loc *time.Location) string {
	loc = orUTC(loc)
	localStart := start.In(loc)
	localEnd := end.In(loc)
	if allDay && localEnd.After(localStart) && isMidnight(localEnd) {
		localEnd = localEnd.Add(-time.Nanosecond)
	}

	startDay := localStart.Format("02.01.2006")
	endDay := localEnd.Format("02.01.2006")
	if startDay != endDay {
		return startDay + " - " + endDay
	}
	if allDay {
		return startDay
	}
	return fmt.Sprintf("%s, %s - %s", startDay, localStart.Format("15:04"), localEnd.Format("15:04"))
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
