package timeline

import (
	"sort"
	"time"
)

// MemberAvailability counts the absence records of one member inside a window.
type MemberAvailability struct {
	MemberID        string
	Name            string
	Vacations       int
	UnavailableDays int
	Total           int
}

// Summarize counts, per member, the vacations overlapping the window and the
// unavailable days inside it. Members without absences are omitted. The result
// is ordered by total descending, then name and member id.
func Summarize(window Window, vacations []Vacation, days []UnavailableDay, names map[string]string) []MemberAvailability {
	byMember := make(map[string]*MemberAvailability)
	entry := func(memberID string) *MemberAvailability {
		if e, ok := byMember[memberID]; ok {
			return e
		}
		name := names[memberID]
		if name == "" {
			name = memberID
		}
		e := &MemberAvailability{MemberID: memberID, Name: name}
		byMember[memberID] = e
		return e
	}

	for _, v := range vacations {
		if window.Overlaps(window.DayStart(v.StartDate), window.DayStart(v.EndDate).AddDate(0, 0, 1)) {
			entry(v.MemberID).Vacations++
		}
	}
	for _, d := range days {
		start := window.DayStart(d.Date)
		if window.Overlaps(start, start.AddDate(0, 0, 1)) {
			entry(d.MemberID).UnavailableDays++
		}
	}

	summary := make([]MemberAvailability, 0, len(byMember))
	for _, e := range byMember {
		e.Total = e.Vacations + e.UnavailableDays
		summary = append(summary, *e)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Total != summary[j].Total {
			return summary[i].Total > summary[j].Total
		}
		if summary[i].Name != summary[j].Name {
			return summary[i].Name < summary[j].Name
		}
		return summary[i].MemberID < summary[j].MemberID
	})
	return summary
}

// MonthWindow returns the window covering the calendar month of t in loc.
func MonthWindow(t time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Window{From: from, To: from.AddDate(0, 1, 0), Location: loc}
}
