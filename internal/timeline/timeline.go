// Package timeline merges events, vacations and unavailable days into one
// ordered sequence of display items for a viewing window.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category classifies a display item.
type Category string

const (
	CategoryEvent       Category = "event"
	CategoryVacation    Category = "vacation"
	CategoryUnavailable Category = "unavailable"
)

// Category colors. DefaultEventColor applies to events without a stored color.
const (
	DefaultEventColor      = "#3b82f6"
	VacationColor          = "#f59e0b"
	VacationBorderColor    = "#d97706"
	UnavailableColor       = "#ef4444"
	UnavailableBorderColor = "#dc2626"
)

// UnknownMemberName labels absences of members missing from the name lookup.
const UnknownMemberName = "Unbekannt"

const (
	attendanceStatusAbsent = "absent"
	vacationTitleMarker    = "🏖️"
	unavailableTitleMarker = "🚫"
)

// Absence scope values. Any other non-empty value is a member id.
const (
	ScopeAll  = "all"
	ScopeMine = "mine"
)

// ErrInvalidWindow is returned when a window does not satisfy From < To.
var ErrInvalidWindow = errors.New("timeline: window end must be after start")

// Window is the half-open viewing range [From, To). Location is the zone in
// which date-only absences start their day; nil means UTC.
type Window struct {
	From     time.Time
	To       time.Time
	Location *time.Location
}

// Validate reports whether the window is usable.
func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() || !w.From.Before(w.To) {
		return fmt.Errorf("%w: [%s, %s)", ErrInvalidWindow, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether [start, end) intersects the window. Zero-length
// ranges count when their instant lies inside the window.
func (w Window) Overlaps(start, end time.Time) bool {
	if end.Equal(start) {
		return !start.Before(w.From) && start.Before(w.To)
	}
	return start.Before(w.To) && end.After(w.From)
}

// DayStart returns midnight in the window's zone of the calendar date of t.
func (w Window) DayStart(t time.Time) time.Time {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Filter holds the viewer-selected options.
type Filter struct {
	OnlyMyEvents bool
	ShowAbsences bool
	// AbsenceScope is ScopeAll, ScopeMine or a member id. Empty means ScopeAll.
	AbsenceScope string
}

// Event is the calendar entry shape the timeline consumes.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Color       string
}

// Attendance is one of the viewer's attendance records.
type Attendance struct {
	EventID string
	Status  string
}

// Vacation is an inclusive, date-only absence range.
type Vacation struct {
	ID        string
	MemberID  string
	StartDate time.Time
	EndDate   time.Time
	Note      *string
}

// UnavailableDay is a single date on which a member is unavailable.
type UnavailableDay struct {
	ID       string
	MemberID string
	Date     time.Time
	Reason   *string
}

// Input collects everything Build needs. Records outside the window are
// ignored, so callers may pass supersets.
type Input struct {
	Window          Window
	ViewerID        string
	Filter          Filter
	Events          []Event
	Attendances     []Attendance
	Vacations       []Vacation
	UnavailableDays []UnavailableDay
	MemberNames     map[string]string
}

// Item is one entry of the merged timeline.
type Item struct {
	ID               string
	SourceID         string
	Category         Category
	Title            string
	Description      string
	Location         string
	Start            time.Time
	End              time.Time
	AllDay           bool
	Color            string
	BorderColor      string
	MemberID         string
	MemberName       string
	HasMyAttendance  bool
	AttendanceStatus string
	Emphasized       bool
}

// Build returns the display items for in, ordered by start ascending. Items
// with equal start keep the order events, vacations, unavailable days and
// then their input order.
func Build(in Input) []Item {
	mine := make(map[string]Attendance, len(in.Attendances))
	for _, a := range in.Attendances {
		mine[a.EventID] = a
	}

	items := make([]Item, 0, len(in.Events))
	for _, event := range in.Events {
		if !in.Window.Overlaps(event.Start, event.End) {
			continue
		}
		attendance, ok := mine[event.ID]
		if in.Filter.OnlyMyEvents && !ok {
			continue
		}
		items = append(items, eventItem(event, attendance, ok))
	}

	if in.Filter.ShowAbsences {
		for _, vacation := range in.Vacations {
			if !inScope(in.Filter.AbsenceScope, in.ViewerID, vacation.MemberID) {
				continue
			}
			item := vacationItem(in.Window, vacation, memberName(in.MemberNames, vacation.MemberID))
			if in.Window.Overlaps(item.Start, item.End) {
				items = append(items, item)
			}
		}
		for _, day := range in.UnavailableDays {
			if !inScope(in.Filter.AbsenceScope, in.ViewerID, day.MemberID) {
				continue
			}
			item := unavailableItem(in.Window, day, memberName(in.MemberNames, day.MemberID))
			if in.Window.Overlaps(item.Start, item.End) {
				items = append(items, item)
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return categoryRank(items[i].Category) < categoryRank(items[j].Category)
	})
	return items
}

func eventItem(event Event, attendance Attendance, attending bool) Item {
	color := strings.TrimSpace(event.Color)
	if color == "" {
		color = DefaultEventColor
	}
	item := Item{
		ID:              event.ID,
		SourceID:        event.ID,
		Category:        CategoryEvent,
		Title:           event.Title,
		Description:     event.Description,
		Location:        event.Location,
		Start:           event.Start,
		End:             event.End,
		AllDay:          event.AllDay,
		Color:           color,
		BorderColor:     color,
		HasMyAttendance: attending,
	}
	if attending {
		item.AttendanceStatus = attendance.Status
		item.Emphasized = attendance.Status != attendanceStatusAbsent
	}
	return item
}

func vacationItem(w Window, vacation Vacation, name string) Item {
	return Item{
		ID:          "vacation-" + vacation.ID,
		SourceID:    vacation.ID,
		Category:    CategoryVacation,
		Title:       absenceTitle(vacationTitleMarker, name, "Urlaub", vacation.Note),
		Start:       w.DayStart(vacation.StartDate),
		End:         w.DayStart(vacation.EndDate).AddDate(0, 0, 1),
		AllDay:      true,
		Color:       VacationColor,
		BorderColor: VacationBorderColor,
		MemberID:    vacation.MemberID,
		MemberName:  name,
	}
}

func unavailableItem(w Window, day UnavailableDay, name string) Item {
	start := w.DayStart(day.Date)
	return Item{
		ID:          "unavailable-" + day.ID,
		SourceID:    day.ID,
		Category:    CategoryUnavailable,
		Title:       absenceTitle(unavailableTitleMarker, name, "F-Tag", day.Reason),
		Start:       start,
		End:         start.AddDate(0, 0, 1),
		AllDay:      true,
		Color:       UnavailableColor,
		BorderColor: UnavailableBorderColor,
		MemberID:    day.MemberID,
		MemberName:  name,
	}
}

func absenceTitle(marker, name, label string, detail *string) string {
	title := fmt.Sprintf("%s %s - %s", marker, name, label)
	if detail != nil && strings.TrimSpace(*detail) != "" {
		title += ": " + strings.TrimSpace(*detail)
	}
	return title
}

func inScope(scope, viewerID, memberID string) bool {
	switch scope {
	case "", ScopeAll:
		return true
	case ScopeMine:
		return memberID == viewerID
	default:
		return memberID == scope
	}
}

func memberName(names map[string]string, memberID string) string {
	if name := strings.TrimSpace(names[memberID]); name != "" {
		return name
	}
	return UnknownMemberName
}

func categoryRank(c Category) int {
	switch c {
	case CategoryEvent:
		return 0
	case CategoryVacation:
		return 1
	default:
		return 2
	}
}
