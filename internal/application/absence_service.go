package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/persistence"
	"github.com/airbussard/jvc/internal/textsanitize"
)

// AbsenceRepository captures the persistence operations needed for vacations
// and unavailable days.
type AbsenceRepository interface {
	AbsenceLister
	CreateVacation(ctx context.Context, vacation Vacation) (Vacation, error)
	GetVacation(ctx context.Context, id string) (Vacation, error)
	DeleteVacation(ctx context.Context, id string) error
	CreateUnavailableDay(ctx context.Context, day UnavailableDay) (UnavailableDay, error)
	GetUnavailableDay(ctx context.Context, id string) (UnavailableDay, error)
	DeleteUnavailableDay(ctx context.Context, id string) error
}

// AbsenceService manages vacations and unavailable days.
type AbsenceService struct {
	absences    AbsenceRepository
	members     MemberDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAbsenceService constructs an absence service with the provided dependencies.
func NewAbsenceService(absences AbsenceRepository, members MemberDirectory, idGenerator func() string, now func() time.Time) *AbsenceService {
	return NewAbsenceServiceWithLogger(absences, members, idGenerator, now, nil)
}

// NewAbsenceServiceWithLogger constructs an absence service with a specified logger.
func NewAbsenceServiceWithLogger(absences AbsenceRepository, members MemberDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AbsenceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AbsenceService{absences: absences, members: members, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *AbsenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AbsenceService", operation, attrs...)
}

// CreateVacation records an inclusive vacation range. Members record their
// own vacations; administrators may record them for anyone.
func (s *AbsenceService) CreateVacation(ctx context.Context, params CreateVacationParams) (vacation Vacation, err error) {
	if s == nil {
		err = fmt.Errorf("AbsenceService is nil")
		return
	}

	memberID := ownerOrSelf(params.MemberID, params.Principal)
	logger := s.loggerWith(ctx, "CreateVacation",
		"principal_id", params.Principal.MemberID,
		"member_id", memberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create vacation", failureAttrs(err)...)
			return
		}
		logger.With("vacation_id", vacation.ID).InfoContext(ctx, "vacation created")
	}()

	if !params.Principal.actsFor(memberID) {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if params.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}
	if params.EndDate.IsZero() {
		vErr.add("end_date", "end date is required")
	}
	start, end := dateOf(params.StartDate), dateOf(params.EndDate)
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() && end.Before(start) {
		vErr.add("end_date", "end date must not be before start date")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureMember(ctx, memberID); err != nil {
		return
	}

	vacation, err = s.absences.CreateVacation(ctx, Vacation{
		ID:        s.idGenerator(),
		MemberID:  memberID,
		StartDate: start,
		EndDate:   end,
		Note:      textsanitize.PlainPtr(params.Note),
		CreatedAt: s.now(),
	})
	if err != nil {
		err = mapAbsenceRepoError(err, "vacation", "")
	}
	return
}

// DeleteVacation removes a vacation owned by the principal, or any vacation
// for administrators.
func (s *AbsenceService) DeleteVacation(ctx context.Context, principal Principal, vacationID string) error {
	if s == nil {
		return fmt.Errorf("AbsenceService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteVacation",
		"principal_id", principal.MemberID,
		"vacation_id", vacationID,
	)

	err := func() error {
		existing, err := s.absences.GetVacation(ctx, vacationID)
		if err != nil {
			return mapAbsenceRepoError(err, "vacation", vacationID)
		}
		if !principal.actsFor(existing.MemberID) {
			return ErrUnauthorized
		}
		return mapAbsenceRepoError(s.absences.DeleteVacation(ctx, vacationID), "vacation", vacationID)
	}()
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete vacation", failureAttrs(err)...)
		return err
	}

	logger.InfoContext(ctx, "vacation deleted")
	return nil
}

// ListVacations returns the vacations of one member.
func (s *AbsenceService) ListVacations(ctx context.Context, params ListAbsencesParams) ([]Vacation, error) {
	if s == nil {
		return nil, fmt.Errorf("AbsenceService is nil")
	}
	query, err := absenceQueryFor(params)
	if err != nil {
		return nil, err
	}
	return s.absences.ListVacations(ctx, query)
}

// CreateUnavailableDay records a single unavailable date. A member has at most
// one record per date.
func (s *AbsenceService) CreateUnavailableDay(ctx context.Context, params CreateUnavailableDayParams) (day UnavailableDay, err error) {
	if s == nil {
		err = fmt.Errorf("AbsenceService is nil")
		return
	}

	memberID := ownerOrSelf(params.MemberID, params.Principal)
	logger := s.loggerWith(ctx, "CreateUnavailableDay",
		"principal_id", params.Principal.MemberID,
		"member_id", memberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create unavailable day", failureAttrs(err)...)
			return
		}
		logger.With("unavailable_day_id", day.ID).InfoContext(ctx, "unavailable day created")
	}()

	if !params.Principal.actsFor(memberID) {
		err = ErrUnauthorized
		return
	}
	if params.Date.IsZero() {
		err = fieldError("date", "date is required")
		return
	}
	if err = s.ensureMember(ctx, memberID); err != nil {
		return
	}

	day, err = s.absences.CreateUnavailableDay(ctx, UnavailableDay{
		ID:        s.idGenerator(),
		MemberID:  memberID,
		Date:      dateOf(params.Date),
		Reason:    textsanitize.PlainPtr(params.Reason),
		CreatedAt: s.now(),
	})
	if err != nil {
		err = mapAbsenceRepoError(err, "unavailable day", "")
	}
	return
}

// DeleteUnavailableDay removes an unavailable day owned by the principal, or
// any for administrators.
func (s *AbsenceService) DeleteUnavailableDay(ctx context.Context, principal Principal, dayID string) error {
	if s == nil {
		return fmt.Errorf("AbsenceService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteUnavailableDay",
		"principal_id", principal.MemberID,
		"unavailable_day_id", dayID,
	)

	existing, err := s.absences.GetUnavailableDay(ctx, dayID)
	if err == nil && !principal.actsFor(existing.MemberID) {
		err = ErrUnauthorized
	} else if err == nil {
		err = s.absences.DeleteUnavailableDay(ctx, dayID)
	}
	if err != nil {
		err = mapAbsenceRepoError(err, "unavailable day", dayID)
		logger.ErrorContext(ctx, "failed to delete unavailable day", failureAttrs(err)...)
		return err
	}

	logger.InfoContext(ctx, "unavailable day deleted")
	return nil
}

// ListUnavailableDays returns the unavailable days of one member.
func (s *AbsenceService) ListUnavailableDays(ctx context.Context, params ListAbsencesParams) ([]UnavailableDay, error) {
	if s == nil {
		return nil, fmt.Errorf("AbsenceService is nil")
	}
	query, err := absenceQueryFor(params)
	if err != nil {
		return nil, err
	}
	return s.absences.ListUnavailableDays(ctx, query)
}

func (s *AbsenceService) ensureMember(ctx context.Context, memberID string) error {
	if s.members == nil {
		return nil
	}
	if _, err := s.members.GetMember(ctx, memberID); err != nil {
		return mapLookupError(err, "member", memberID)
	}
	return nil
}

func absenceQueryFor(params ListAbsencesParams) (AbsenceQuery, error) {
	memberID := ownerOrSelf(params.MemberID, params.Principal)
	if !params.Principal.actsFor(memberID) {
		return AbsenceQuery{}, ErrUnauthorized
	}
	query := AbsenceQuery{MemberID: &memberID}
	if params.From != nil {
		from := dateOf(*params.From)
		query.From = &from
	}
	if params.To != nil {
		to := dateOf(*params.To)
		query.To = &to
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return AbsenceQuery{}, fieldError("to", "end of range must not be before its start")
	}
	return query, nil
}

func ownerOrSelf(memberID string, principal Principal) string {
	if id := strings.TrimSpace(memberID); id != "" {
		return id
	}
	return principal.MemberID
}

func mapAbsenceRepoError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFoundError(err):
		return notFound(entity, id)
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return notFound("member", "")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("end_date", "end date must not be before start date")
	}
	return err
}
