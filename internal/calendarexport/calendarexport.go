// Package calendarexport writes timeline items as an iCalendar feed.
package calendarexport

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/airbussard/jvc/internal/timeline"
)

// ProductID identifies the generator in exported calendars.
const ProductID = "-//jvc//Terminkalender//DE"

// Options controls the encoded feed.
type Options struct {
	// Name is written as X-WR-CALNAME when set.
	Name string
	// Location determines the calendar date of all-day items.
	Location *time.Location
	// Stamp is used as DTSTAMP for every component.
	Stamp time.Time
	// UIDDomain is appended to item IDs to form globally unique UIDs.
	UIDDomain string
}

// Encode writes items as a VCALENDAR with one VEVENT per item.
func Encode(w io.Writer, items []timeline.Item, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	domain := opts.UIDDomain
	if domain == "" {
		domain = "jvc"
	}
	stamp := opts.Stamp.UTC()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	if opts.Name != "" {
		cal.Props.Set(calendarName(opts.Name))
	}

	for _, item := range items {
		cal.Children = append(cal.Children, toVEvent(item, stamp, loc, domain))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// calendarName builds X-WR-CALNAME without a VALUE parameter, which clients
// reading the extension do not expect.
func calendarName(name string) *ical.Prop {
	p := ical.NewProp("X-WR-CALNAME")
	p.SetText(name)
	delete(p.Params, ical.ParamValue)
	return p
}

func toVEvent(item timeline.Item, stamp time.Time, loc *time.Location, domain string) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, item.ID+"@"+domain)
	ve.Props.SetText(ical.PropSummary, item.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	if item.AllDay {
		start, end := allDayRange(item.Start, item.End, loc)
		ve.Props.SetDate(ical.PropDateTimeStart, start)
		ve.Props.SetDate(ical.PropDateTimeEnd, end)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, item.Start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, item.End.UTC())
	}

	if item.Description != "" {
		ve.Props.SetText(ical.PropDescription, item.Description)
	}
	if item.Location != "" {
		ve.Props.SetText(ical.PropLocation, item.Location)
	}
	ve.Props.SetText(ical.PropCategories, string(item.Category))
	return ve
}

// allDayRange returns the first date and the exclusive end date of an
// all-day span. Absence items are date-only values in UTC and keep their
// dates; events are viewed in loc.
func allDayRange(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	if !isMidnight(start) {
		start, end = start.In(loc), end.In(loc)
	}
	first := dateOnly(start)
	last := dateOnly(end)
	if !isMidnight(end) || !last.After(first) {
		last = last.AddDate(0, 0, 1)
	}
	return first, last
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
