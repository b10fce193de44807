package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/exemption"
)

// Display names of the unit filters that do not name a unit.
const (
	AllUnitsName = "Alle Organisationen"
	NoUnitName   = "Ohne Organisation"
)

// UnitCatalog resolves organization units.
type UnitCatalog interface {
	GetOrganizationUnit(ctx context.Context, id string) (OrganizationUnit, error)
	ListOrganizationUnits(ctx context.Context) ([]OrganizationUnit, error)
}

// ExemptionReportService assembles the exemption list and report document.
type ExemptionReportService struct {
	attendances AttendanceLister
	events      EventCatalog
	members     MemberLister
	units       UnitCatalog
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewExemptionReportService constructs a report service. Month filters and
// date labels are evaluated in location.
func NewExemptionReportService(attendances AttendanceLister, events EventCatalog, members MemberLister, units UnitCatalog, now func() time.Time, location *time.Location) *ExemptionReportService {
	return NewExemptionReportServiceWithLogger(attendances, events, members, units, now, location, nil)
}

// NewExemptionReportServiceWithLogger constructs a report service with a specified logger.
func NewExemptionReportServiceWithLogger(attendances AttendanceLister, events EventCatalog, members MemberLister, units UnitCatalog, now func() time.Time, location *time.Location, logger *slog.Logger) *ExemptionReportService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ExemptionReportService{
		attendances: attendances,
		events:      events,
		members:     members,
		units:       units,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *ExemptionReportService) loggerWith(ctx context.Context, operation string, params ReportParams) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ExemptionReportService", operation,
		"principal_id", params.Principal.MemberID,
		"unit", params.Unit,
		"month", params.Month,
	)
}

// ListExemptions returns the sorted exemption entries for the list view.
func (s *ExemptionReportService) ListExemptions(ctx context.Context, params ReportParams) (entries []ExemptionEntry, err error) {
	if s == nil {
		err = fmt.Errorf("ExemptionReportService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListExemptions", params)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list exemptions", failureAttrs(err)...)
			return
		}
		logger.With("result_count", len(entries)).InfoContext(ctx, "exemptions listed")
	}()

	entries, _, _, err = s.selectEntries(ctx, params)
	return
}

// BuildReport returns the report document for the requested unit and month.
// An empty selection yields a valid document without rows.
func (s *ExemptionReportService) BuildReport(ctx context.Context, params ReportParams) (report ExemptionReport, err error) {
	if s == nil {
		err = fmt.Errorf("ExemptionReportService is nil")
		return
	}

	logger := s.loggerWith(ctx, "BuildReport", params)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build exemption report", failureAttrs(err)...)
			return
		}
		logger.With("result_count", report.TotalCount, "filename", report.Filename).InfoContext(ctx, "exemption report built")
	}()

	entries, unitName, month, err := s.selectEntries(ctx, params)
	if err != nil {
		return
	}
	report = exemption.NewDocument(entries, unitName, month, s.now(), s.location)
	return
}

func (s *ExemptionReportService) selectEntries(ctx context.Context, params ReportParams) ([]ExemptionEntry, string, *exemption.Month, error) {
	unit := strings.TrimSpace(params.Unit)
	if unit == "" {
		unit = exemption.UnitAll
	}

	var month *exemption.Month
	if value := strings.TrimSpace(params.Month); value != "" {
		parsed, err := exemption.ParseMonth(value)
		if err != nil {
			return nil, "", nil, fieldError("month", "month must be formatted YYYY-MM")
		}
		month = &parsed
	}

	if !canReadReport(params.Principal, unit) {
		return nil, "", nil, ErrUnauthorized
	}

	var unitName string
	switch unit {
	case exemption.UnitAll:
		unitName = AllUnitsName
	case exemption.UnitNone:
		unitName = NoUnitName
	default:
		found, err := s.units.GetOrganizationUnit(ctx, unit)
		if err != nil {
			return nil, "", nil, mapLookupError(err, "organization unit", unit)
		}
		unitName = found.Name
	}

	flagged := true
	attendances, err := s.attendances.ListAttendances(ctx, AttendanceQuery{RequiresExemption: &flagged})
	if err != nil {
		return nil, "", nil, err
	}
	if len(attendances) == 0 {
		return []ExemptionEntry{}, unitName, month, nil
	}

	eventIDs := make([]string, 0, len(attendances))
	seen := make(map[string]struct{}, len(attendances))
	for _, a := range attendances {
		if _, ok := seen[a.EventID]; ok {
			continue
		}
		seen[a.EventID] = struct{}{}
		eventIDs = append(eventIDs, a.EventID)
	}
	events, err := s.events.ListEvents(ctx, EventQuery{IDs: eventIDs})
	if err != nil {
		return nil, "", nil, err
	}
	members, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	units, err := s.units.ListOrganizationUnits(ctx)
	if err != nil {
		return nil, "", nil, err
	}

	in := exemption.Input{
		Attendances: make([]exemption.Attendance, 0, len(attendances)),
		Events:      make([]exemption.Event, 0, len(events)),
		Members:     make([]exemption.Member, 0, len(members)),
		Units:       make([]exemption.Unit, 0, len(units)),
	}
	for _, a := range attendances {
		in.Attendances = append(in.Attendances, exemption.Attendance{
			ID:                a.ID,
			EventID:           a.EventID,
			MemberID:          a.MemberID,
			Status:            string(a.Status),
			RequiresExemption: a.RequiresExemption,
		})
	}
	for _, e := range events {
		in.Events = append(in.Events, exemption.Event{ID: e.ID, Title: e.Title, Start: e.Start, End: e.End, AllDay: e.AllDay})
	}
	for _, m := range members {
		in.Members = append(in.Members, exemption.Member{ID: m.ID, DisplayName: m.DisplayName, OrganizationUnitID: m.OrganizationUnitID})
	}
	for _, u := range units {
		in.Units = append(in.Units, exemption.Unit{ID: u.ID, Name: u.Name})
	}

	entries := exemption.Select(in, exemption.Query{Unit: unit, Month: month, Location: s.location})
	return entries, unitName, month, nil
}

// canReadReport allows admins everything, moderators the cross-unit views and
// members the report of their own unit.
func canReadReport(p Principal, unit string) bool {
	if p.IsAdmin() {
		return true
	}
	if unit == exemption.UnitAll || unit == exemption.UnitNone {
		return p.Role == RoleModerator
	}
	return p.OrganizationUnitID != nil && *p.OrganizationUnitID == unit
}
