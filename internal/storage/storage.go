// Package storage adapts the persistence repositories to the repository
// interfaces of the application layer.
package storage

import (
	"context"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/persistence"
	"github.com/airbussard/jvc/internal/persistence/sqlite"
)

// Stores bundles one adapter per aggregate.
type Stores struct {
	Members           *MemberStore
	OrganizationUnits *OrganizationUnitStore
	Events            *EventStore
	Absences          *AbsenceStore
	Attendances       *AttendanceStore
}

// FromSQLite wraps the repositories of an opened SQLite storage.
func FromSQLite(s *sqlite.Storage) Stores {
	return Stores{
		Members:           NewMemberStore(s.Members),
		OrganizationUnits: NewOrganizationUnitStore(s.OrganizationUnits),
		Events:            NewEventStore(s.Events),
		Absences:          NewAbsenceStore(s.Absences),
		Attendances:       NewAttendanceStore(s.Attendances),
	}
}

// MemberStore implements application.MemberRepository.
type MemberStore struct {
	repo persistence.MemberRepository
}

func NewMemberStore(repo persistence.MemberRepository) *MemberStore {
	return &MemberStore{repo: repo}
}

func (s *MemberStore) CreateMember(ctx context.Context, member application.Member) (application.Member, error) {
	if err := s.repo.CreateMember(ctx, toPersistenceMember(member)); err != nil {
		return application.Member{}, err
	}
	return s.GetMember(ctx, member.ID)
}

func (s *MemberStore) GetMember(ctx context.Context, id string) (application.Member, error) {
	stored, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (s *MemberStore) UpdateMember(ctx context.Context, member application.Member) (application.Member, error) {
	if err := s.repo.UpdateMember(ctx, toPersistenceMember(member)); err != nil {
		return application.Member{}, err
	}
	return s.GetMember(ctx, member.ID)
}

func (s *MemberStore) ListMembers(ctx context.Context) ([]application.Member, error) {
	models, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]application.Member, 0, len(models))
	for _, m := range models {
		members = append(members, toApplicationMember(m))
	}
	return members, nil
}

// OrganizationUnitStore implements application.OrganizationUnitRepository.
type OrganizationUnitStore struct {
	repo persistence.OrganizationUnitRepository
}

func NewOrganizationUnitStore(repo persistence.OrganizationUnitRepository) *OrganizationUnitStore {
	return &OrganizationUnitStore{repo: repo}
}

func (s *OrganizationUnitStore) CreateOrganizationUnit(ctx context.Context, unit application.OrganizationUnit) (application.OrganizationUnit, error) {
	if err := s.repo.CreateOrganizationUnit(ctx, persistence.OrganizationUnit(unit)); err != nil {
		return application.OrganizationUnit{}, err
	}
	return s.GetOrganizationUnit(ctx, unit.ID)
}

func (s *OrganizationUnitStore) GetOrganizationUnit(ctx context.Context, id string) (application.OrganizationUnit, error) {
	stored, err := s.repo.GetOrganizationUnit(ctx, id)
	if err != nil {
		return application.OrganizationUnit{}, err
	}
	return application.OrganizationUnit(stored), nil
}

func (s *OrganizationUnitStore) UpdateOrganizationUnit(ctx context.Context, unit application.OrganizationUnit) (application.OrganizationUnit, error) {
	if err := s.repo.UpdateOrganizationUnit(ctx, persistence.OrganizationUnit(unit)); err != nil {
		return application.OrganizationUnit{}, err
	}
	return s.GetOrganizationUnit(ctx, unit.ID)
}

func (s *OrganizationUnitStore) ListOrganizationUnits(ctx context.Context) ([]application.OrganizationUnit, error) {
	models, err := s.repo.ListOrganizationUnits(ctx)
	if err != nil {
		return nil, err
	}
	units := make([]application.OrganizationUnit, 0, len(models))
	for _, u := range models {
		units = append(units, application.OrganizationUnit(u))
	}
	return units, nil
}

func (s *OrganizationUnitStore) DeleteOrganizationUnit(ctx context.Context, id string) (int, error) {
	return s.repo.DeleteOrganizationUnit(ctx, id)
}

// EventStore implements application.EventRepository.
type EventStore struct {
	repo persistence.EventRepository
}

func NewEventStore(repo persistence.EventRepository) *EventStore {
	return &EventStore{repo: repo}
}

func (s *EventStore) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := s.repo.CreateEvent(ctx, persistence.Event(event)); err != nil {
		return application.Event{}, err
	}
	return s.GetEvent(ctx, event.ID)
}

func (s *EventStore) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return application.Event(stored), nil
}

func (s *EventStore) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := s.repo.UpdateEvent(ctx, persistence.Event(event)); err != nil {
		return application.Event{}, err
	}
	return s.GetEvent(ctx, event.ID)
}

func (s *EventStore) DeleteEvent(ctx context.Context, id string) error {
	return s.repo.DeleteEvent(ctx, id)
}

func (s *EventStore) ListEvents(ctx context.Context, query application.EventQuery) ([]application.Event, error) {
	models, err := s.repo.ListEvents(ctx, persistence.EventFilter{
		StartsBefore: query.StartsBefore,
		EndsAfter:    query.EndsAfter,
		IDs:          append([]string(nil), query.IDs...),
	})
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(models))
	for _, e := range models {
		events = append(events, application.Event(e))
	}
	return events, nil
}

// AbsenceStore implements application.AbsenceRepository.
type AbsenceStore struct {
	repo persistence.AbsenceRepository
}

func NewAbsenceStore(repo persistence.AbsenceRepository) *AbsenceStore {
	return &AbsenceStore{repo: repo}
}

func (s *AbsenceStore) CreateVacation(ctx context.Context, vacation application.Vacation) (application.Vacation, error) {
	if err := s.repo.CreateVacation(ctx, persistence.Vacation(vacation)); err != nil {
		return application.Vacation{}, err
	}
	return s.GetVacation(ctx, vacation.ID)
}

func (s *AbsenceStore) GetVacation(ctx context.Context, id string) (application.Vacation, error) {
	stored, err := s.repo.GetVacation(ctx, id)
	if err != nil {
		return application.Vacation{}, err
	}
	return application.Vacation(stored), nil
}

func (s *AbsenceStore) DeleteVacation(ctx context.Context, id string) error {
	return s.repo.DeleteVacation(ctx, id)
}

func (s *AbsenceStore) ListVacations(ctx context.Context, query application.AbsenceQuery) ([]application.Vacation, error) {
	models, err := s.repo.ListVacations(ctx, absenceFilter(query))
	if err != nil {
		return nil, err
	}
	vacations := make([]application.Vacation, 0, len(models))
	for _, v := range models {
		vacations = append(vacations, application.Vacation(v))
	}
	return vacations, nil
}

func (s *AbsenceStore) CreateUnavailableDay(ctx context.Context, day application.UnavailableDay) (application.UnavailableDay, error) {
	if err := s.repo.CreateUnavailableDay(ctx, persistence.UnavailableDay(day)); err != nil {
		return application.UnavailableDay{}, err
	}
	return s.GetUnavailableDay(ctx, day.ID)
}

func (s *AbsenceStore) GetUnavailableDay(ctx context.Context, id string) (application.UnavailableDay, error) {
	stored, err := s.repo.GetUnavailableDay(ctx, id)
	if err != nil {
		return application.UnavailableDay{}, err
	}
	return application.UnavailableDay(stored), nil
}

func (s *AbsenceStore) DeleteUnavailableDay(ctx context.Context, id string) error {
	return s.repo.DeleteUnavailableDay(ctx, id)
}

func (s *AbsenceStore) ListUnavailableDays(ctx context.Context, query application.AbsenceQuery) ([]application.UnavailableDay, error) {
	models, err := s.repo.ListUnavailableDays(ctx, absenceFilter(query))
	if err != nil {
		return nil, err
	}
	days := make([]application.UnavailableDay, 0, len(models))
	for _, d := range models {
		days = append(days, application.UnavailableDay(d))
	}
	return days, nil
}

func absenceFilter(query application.AbsenceQuery) persistence.AbsenceFilter {
	return persistence.AbsenceFilter{MemberID: query.MemberID, From: query.From, To: query.To}
}

// AttendanceStore implements application.AttendanceRepository.
type AttendanceStore struct {
	repo persistence.AttendanceRepository
}

func NewAttendanceStore(repo persistence.AttendanceRepository) *AttendanceStore {
	return &AttendanceStore{repo: repo}
}

func (s *AttendanceStore) UpsertAttendance(ctx context.Context, attendance application.Attendance) (application.Attendance, error) {
	stored, err := s.repo.UpsertAttendance(ctx, toPersistenceAttendance(attendance))
	if err != nil {
		return application.Attendance{}, err
	}
	return toApplicationAttendance(stored), nil
}

func (s *AttendanceStore) UpdateAttendanceExemption(ctx context.Context, eventID, memberID string, requiresExemption bool, updatedAt time.Time) (application.Attendance, error) {
	stored, err := s.repo.UpdateAttendanceExemption(ctx, eventID, memberID, requiresExemption, updatedAt)
	if err != nil {
		return application.Attendance{}, err
	}
	return toApplicationAttendance(stored), nil
}

func (s *AttendanceStore) GetAttendance(ctx context.Context, eventID, memberID string) (application.Attendance, error) {
	stored, err := s.repo.GetAttendance(ctx, eventID, memberID)
	if err != nil {
		return application.Attendance{}, err
	}
	return toApplicationAttendance(stored), nil
}

func (s *AttendanceStore) ListAttendances(ctx context.Context, query application.AttendanceQuery) ([]application.Attendance, error) {
	models, err := s.repo.ListAttendances(ctx, persistence.AttendanceFilter{
		EventIDs:          append([]string(nil), query.EventIDs...),
		MemberID:          query.MemberID,
		RequiresExemption: query.RequiresExemption,
	})
	if err != nil {
		return nil, err
	}
	attendances := make([]application.Attendance, 0, len(models))
	for _, a := range models {
		attendances = append(attendances, toApplicationAttendance(a))
	}
	return attendances, nil
}

func (s *AttendanceStore) DeleteAttendance(ctx context.Context, eventID, memberID string) (bool, error) {
	return s.repo.DeleteAttendance(ctx, eventID, memberID)
}

func toPersistenceMember(m application.Member) persistence.Member {
	return persistence.Member{
		ID:                 m.ID,
		DisplayName:        m.DisplayName,
		Role:               string(m.Role),
		OrganizationUnitID: m.OrganizationUnitID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toApplicationMember(m persistence.Member) application.Member {
	return application.Member{
		ID:                 m.ID,
		DisplayName:        m.DisplayName,
		Role:               application.Role(m.Role),
		OrganizationUnitID: m.OrganizationUnitID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toPersistenceAttendance(a application.Attendance) persistence.Attendance {
	return persistence.Attendance{
		ID:                a.ID,
		EventID:           a.EventID,
		MemberID:          a.MemberID,
		Status:            string(a.Status),
		RequiresExemption: a.RequiresExemption,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toApplicationAttendance(a persistence.Attendance) application.Attendance {
	return application.Attendance{
		ID:                a.ID,
		EventID:           a.EventID,
		MemberID:          a.MemberID,
		Status:            application.AttendanceStatus(a.Status),
		RequiresExemption: a.RequiresExemption,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
