package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/timeline"
)

// EventQuery narrows event listings. Nil bounds are open.
type EventQuery struct {
	// StartsBefore keeps events starting before the instant.
	StartsBefore *time.Time
	// EndsAfter keeps events ending at or after the instant.
	EndsAfter *time.Time
	IDs       []string
}

// EventCatalog lists events.
type EventCatalog interface {
	ListEvents(ctx context.Context, query EventQuery) ([]Event, error)
}

// AbsenceQuery narrows vacation and unavailable-day listings. Dates are inclusive.
type AbsenceQuery struct {
	MemberID *string
	From     *time.Time
	To       *time.Time
}

// AbsenceLister lists vacations and unavailable days.
type AbsenceLister interface {
	ListVacations(ctx context.Context, query AbsenceQuery) ([]Vacation, error)
	ListUnavailableDays(ctx context.Context, query AbsenceQuery) ([]UnavailableDay, error)
}

// AttendanceLister lists attendances.
type AttendanceLister interface {
	ListAttendances(ctx context.Context, query AttendanceQuery) ([]Attendance, error)
}

// MemberLister lists members.
type MemberLister interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// TimelineService loads the records of a viewing window and merges them
// into display items.
type TimelineService struct {
	events      EventCatalog
	absences    AbsenceLister
	attendances AttendanceLister
	members     MemberLister
	// location is the zone in which vacation and unavailable dates begin.
	location    *time.Location
	logger      *slog.Logger
}

// NewTimelineService constructs a timeline service.
func NewTimelineService(events EventCatalog, absences AbsenceLister, attendances AttendanceLister, members MemberLister, location *time.Location) *TimelineService {
	return NewTimelineServiceWithLogger(events, absences, attendances, members, location, nil)
}

// NewTimelineServiceWithLogger constructs a timeline service with a specified logger.
func NewTimelineServiceWithLogger(events EventCatalog, absences AbsenceLister, attendances AttendanceLister, members MemberLister, location *time.Location, logger *slog.Logger) *TimelineService {
	if location == nil {
		location = time.UTC
	}
	return &TimelineService{
		events:      events,
		absences:    absences,
		attendances: attendances,
		members:     members,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *TimelineService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimelineService", operation, attrs...)
}

// Timeline returns the merged items of the requested window for the principal.
func (s *TimelineService) Timeline(ctx context.Context, params TimelineParams) (items []timeline.Item, err error) {
	if s == nil {
		err = fmt.Errorf("TimelineService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Timeline",
		"principal_id", params.Principal.MemberID,
		"from", params.From,
		"to", params.To,
		"only_my_events", params.Filter.OnlyMyEvents,
		"show_absences", params.Filter.ShowAbsences,
		"absence_scope", params.Filter.AbsenceScope,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build timeline", failureAttrs(err)...)
			return
		}
		logger.With("result_count", len(items)).InfoContext(ctx, "timeline built")
	}()

	window := timeline.Window{From: params.From, To: params.To, Location: s.location}
	if err = validateWindow(window); err != nil {
		return
	}
	if strings.TrimSpace(params.Principal.MemberID) == "" {
		err = ErrUnauthorized
		return
	}

	var members []Member
	if members, err = s.members.ListMembers(ctx); err != nil {
		return
	}
	names := memberNames(members)

	filter := params.Filter
	filter.AbsenceScope = strings.TrimSpace(filter.AbsenceScope)
	if filter.AbsenceScope != "" && filter.AbsenceScope != timeline.ScopeAll && filter.AbsenceScope != timeline.ScopeMine {
		if _, ok := names[filter.AbsenceScope]; !ok {
			err = fieldError("absence_scope", "absence scope must be all, mine or a member id")
			return
		}
	}

	in := timeline.Input{
		Window:      window,
		ViewerID:    params.Principal.MemberID,
		Filter:      filter,
		MemberNames: names,
	}

	var events []Event
	events, err = s.events.ListEvents(ctx, EventQuery{StartsBefore: &window.To, EndsAfter: &window.From})
	if err != nil {
		return
	}
	in.Events = make([]timeline.Event, 0, len(events))
	eventIDs := make([]string, 0, len(events))
	for _, e := range events {
		in.Events = append(in.Events, toTimelineEvent(e))
		eventIDs = append(eventIDs, e.ID)
	}

	if len(eventIDs) > 0 {
		viewer := params.Principal.MemberID
		var attendances []Attendance
		attendances, err = s.attendances.ListAttendances(ctx, AttendanceQuery{EventIDs: eventIDs, MemberID: &viewer})
		if err != nil {
			return
		}
		in.Attendances = make([]timeline.Attendance, 0, len(attendances))
		for _, a := range attendances {
			in.Attendances = append(in.Attendances, timeline.Attendance{EventID: a.EventID, Status: string(a.Status)})
		}
	}

	if filter.ShowAbsences {
		if in.Vacations, in.UnavailableDays, err = s.loadAbsences(ctx, window, absenceOwner(filter.AbsenceScope, params.Principal.MemberID)); err != nil {
			return
		}
	}

	items = timeline.Build(in)
	return
}

// Availability counts absences per member for the requested window.
func (s *TimelineService) Availability(ctx context.Context, params AvailabilityParams) (summary []timeline.MemberAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("TimelineService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Availability",
		"principal_id", params.Principal.MemberID,
		"from", params.From,
		"to", params.To,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to summarize availability", failureAttrs(err)...)
			return
		}
		logger.With("result_count", len(summary)).InfoContext(ctx, "availability summarized")
	}()

	window := timeline.Window{From: params.From, To: params.To, Location: s.location}
	if err = validateWindow(window); err != nil {
		return
	}
	if strings.TrimSpace(params.Principal.MemberID) == "" {
		err = ErrUnauthorized
		return
	}

	var members []Member
	if members, err = s.members.ListMembers(ctx); err != nil {
		return
	}

	var (
		vacations []timeline.Vacation
		days      []timeline.UnavailableDay
	)
	if vacations, days, err = s.loadAbsences(ctx, window, nil); err != nil {
		return
	}

	summary = timeline.Summarize(window, vacations, days, memberNames(members))
	return
}

func (s *TimelineService) loadAbsences(ctx context.Context, window timeline.Window, memberID *string) ([]timeline.Vacation, []timeline.UnavailableDay, error) {
	// Stored dates are UTC midnight; the bounds name the local dates the
	// window touches.
	from := dateIn(window.From, s.location)
	to := dateIn(window.To.Add(-time.Nanosecond), s.location)
	query := AbsenceQuery{MemberID: memberID, From: &from, To: &to}

	vacations, err := s.absences.ListVacations(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	days, err := s.absences.ListUnavailableDays(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	outVacations := make([]timeline.Vacation, 0, len(vacations))
	for _, v := range vacations {
		outVacations = append(outVacations, timeline.Vacation{
			ID:        v.ID,
			MemberID:  v.MemberID,
			StartDate: v.StartDate,
			EndDate:   v.EndDate,
			Note:      v.Note,
		})
	}
	outDays := make([]timeline.UnavailableDay, 0, len(days))
	for _, d := range days {
		outDays = append(outDays, timeline.UnavailableDay{
			ID:       d.ID,
			MemberID: d.MemberID,
			Date:     d.Date,
			Reason:   d.Reason,
		})
	}
	return outVacations, outDays, nil
}

func validateWindow(window timeline.Window) error {
	if err := window.Validate(); err != nil {
		if errors.Is(err, timeline.ErrInvalidWindow) {
			return fieldError("to", "end of range must be after its start")
		}
		return err
	}
	return nil
}

// absenceOwner narrows the absence query when the scope names one member.
func absenceOwner(scope, viewerID string) *string {
	switch scope {
	case "", timeline.ScopeAll:
		return nil
	case timeline.ScopeMine:
		return &viewerID
	}
	return &scope
}

func toTimelineEvent(e Event) timeline.Event {
	return timeline.Event{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.AllDay,
		Color:       e.Color,
	}
}

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	return dateIn(t, time.UTC)
}

// dateIn returns the calendar date of t in loc as a UTC midnight value.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
