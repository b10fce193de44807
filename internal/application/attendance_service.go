package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/persistence"
)

// AttendanceRepository captures the persistence operations needed for attendances.
type AttendanceRepository interface {
	// UpsertAttendance creates the attendance or updates the status of the
	// existing one. The stored exemption flag is kept unless the status is absent.
	UpsertAttendance(ctx context.Context, attendance Attendance) (Attendance, error)
	// UpdateAttendanceExemption changes the flag of a non-absent attendance.
	UpdateAttendanceExemption(ctx context.Context, eventID, memberID string, requiresExemption bool, updatedAt time.Time) (Attendance, error)
	GetAttendance(ctx context.Context, eventID, memberID string) (Attendance, error)
	ListAttendances(ctx context.Context, query AttendanceQuery) ([]Attendance, error)
	DeleteAttendance(ctx context.Context, eventID, memberID string) (bool, error)
}

// AttendanceQuery narrows attendance listings.
type AttendanceQuery struct {
	EventIDs          []string
	MemberID          *string
	RequiresExemption *bool
}

// EventLookup resolves single events.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// MemberDirectory resolves members.
type MemberDirectory interface {
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// AttendanceService manages the attendance of a member for an event.
type AttendanceService struct {
	attendances AttendanceRepository
	events      EventLookup
	members     MemberDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAttendanceService constructs an attendance service with the provided dependencies.
func NewAttendanceService(attendances AttendanceRepository, events EventLookup, members MemberDirectory, idGenerator func() string, now func() time.Time) *AttendanceService {
	return NewAttendanceServiceWithLogger(attendances, events, members, idGenerator, now, nil)
}

// NewAttendanceServiceWithLogger constructs an attendance service with a specified logger.
func NewAttendanceServiceWithLogger(attendances AttendanceRepository, events EventLookup, members MemberDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		attendances: attendances,
		events:      events,
		members:     members,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// Declare records the status of a member for an event. A first declaration
// starts without exemption; a declaration of absent clears it.
func (s *AttendanceService) Declare(ctx context.Context, params DeclareAttendanceParams) (attendance Attendance, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Declare",
		"principal_id", params.Principal.MemberID,
		"event_id", params.EventID,
		"member_id", params.MemberID,
		"status", string(params.Status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to declare attendance", failureAttrs(err)...)
			return
		}
		logger.With("attendance_id", attendance.ID, "requires_exemption", attendance.RequiresExemption).
			InfoContext(ctx, "attendance declared")
	}()

	vErr := validatePair(params.EventID, params.MemberID)
	if !params.Status.Valid() {
		vErr.add("status", "status must be attending_onsite, attending_hybrid or absent")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if !params.Principal.actsFor(params.MemberID) {
		err = ErrUnauthorized
		return
	}
	if err = s.ensurePairExists(ctx, params.EventID, params.MemberID); err != nil {
		return
	}

	now := s.now()
	attendance, err = s.attendances.UpsertAttendance(ctx, Attendance{
		ID:        s.idGenerator(),
		EventID:   params.EventID,
		MemberID:  params.MemberID,
		Status:    params.Status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = mapAttendanceRepoError(err, params.EventID, params.MemberID)
	}
	return
}

// SetExemption changes the exemption flag of an existing, non-absent attendance.
func (s *AttendanceService) SetExemption(ctx context.Context, params SetExemptionParams) (attendance Attendance, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetExemption",
		"principal_id", params.Principal.MemberID,
		"event_id", params.EventID,
		"member_id", params.MemberID,
		"requires_exemption", params.RequiresExemption,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set exemption", failureAttrs(err)...)
			return
		}
		logger.With("attendance_id", attendance.ID).InfoContext(ctx, "exemption updated")
	}()

	if vErr := validatePair(params.EventID, params.MemberID); vErr.HasErrors() {
		err = vErr
		return
	}
	if !params.Principal.actsFor(params.MemberID) {
		err = ErrUnauthorized
		return
	}

	attendance, err = s.attendances.UpdateAttendanceExemption(ctx, params.EventID, params.MemberID, params.RequiresExemption, s.now())
	if err == nil {
		return
	}
	if !isNotFoundError(err) {
		err = mapAttendanceRepoError(err, params.EventID, params.MemberID)
		return
	}

	// The conditional update matched nothing. Tell the caller why.
	current, getErr := s.attendances.GetAttendance(ctx, params.EventID, params.MemberID)
	switch {
	case getErr == nil && current.Status == AttendanceAbsent:
		err = &InvalidStateError{Field: "status", Reason: "exemption cannot be set while absent"}
	case getErr == nil || isNotFoundError(getErr):
		err = &InvalidStateError{Field: "attendance", Reason: "no attendance declared for this event"}
	default:
		err = mapAttendanceRepoError(getErr, params.EventID, params.MemberID)
	}
	return
}

// Withdraw removes the attendance of a member for an event. Removing a
// missing attendance is not an error.
func (s *AttendanceService) Withdraw(ctx context.Context, params WithdrawAttendanceParams) (err error) {
	if s == nil {
		return fmt.Errorf("AttendanceService is nil")
	}

	logger := s.loggerWith(ctx, "Withdraw",
		"principal_id", params.Principal.MemberID,
		"event_id", params.EventID,
		"member_id", params.MemberID,
	)

	if vErr := validatePair(params.EventID, params.MemberID); vErr.HasErrors() {
		return vErr
	}
	if !params.Principal.actsFor(params.MemberID) {
		logger.WarnContext(ctx, "withdraw rejected", "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	removed, err := s.attendances.DeleteAttendance(ctx, params.EventID, params.MemberID)
	if err != nil {
		err = mapAttendanceRepoError(err, params.EventID, params.MemberID)
		logger.ErrorContext(ctx, "failed to withdraw attendance", failureAttrs(err)...)
		return err
	}

	logger.InfoContext(ctx, "attendance withdrawn", "removed", removed)
	return nil
}

// ListForEvent returns the roster of an event ordered by member name.
func (s *AttendanceService) ListForEvent(ctx context.Context, principal Principal, eventID string) (roster []RosterEntry, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListForEvent",
		"principal_id", principal.MemberID,
		"event_id", eventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list attendances", failureAttrs(err)...)
			return
		}
		logger.With("result_count", len(roster)).InfoContext(ctx, "attendances listed")
	}()

	if _, err = s.events.GetEvent(ctx, eventID); err != nil {
		err = mapLookupError(err, "event", eventID)
		return
	}

	var attendances []Attendance
	attendances, err = s.attendances.ListAttendances(ctx, AttendanceQuery{EventIDs: []string{eventID}})
	if err != nil {
		err = mapAttendanceRepoError(err, eventID, "")
		return
	}

	var members []Member
	if members, err = s.members.ListMembers(ctx); err != nil {
		return
	}
	names := memberNames(members)

	roster = make([]RosterEntry, 0, len(attendances))
	for _, a := range attendances {
		roster = append(roster, RosterEntry{Attendance: a, MemberName: names[a.MemberID]})
	}
	sort.SliceStable(roster, func(i, j int) bool {
		if roster[i].MemberName != roster[j].MemberName {
			return roster[i].MemberName < roster[j].MemberName
		}
		return roster[i].Attendance.MemberID < roster[j].Attendance.MemberID
	})
	return
}

func (s *AttendanceService) ensurePairExists(ctx context.Context, eventID, memberID string) error {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return mapLookupError(err, "event", eventID)
	}
	if _, err := s.members.GetMember(ctx, memberID); err != nil {
		return mapLookupError(err, "member", memberID)
	}
	return nil
}

func validatePair(eventID, memberID string) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(eventID) == "" {
		vErr.add("event_id", "event is required")
	}
	if strings.TrimSpace(memberID) == "" {
		vErr.add("member_id", "member is required")
	}
	return vErr
}

func memberNames(members []Member) map[string]string {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}
	return names
}

func mapAttendanceRepoError(err error, eventID, memberID string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return notFound("event or member", eventID+"/"+memberID)
	case isNotFoundError(err):
		return notFound("attendance", eventID+"/"+memberID)
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("status", "status is not allowed")
	}
	return err
}

// mapLookupError turns a missing referenced record into a NotFoundError.
func mapLookupError(err error, entity, id string) error {
	if isNotFoundError(err) {
		return notFound(entity, id)
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
