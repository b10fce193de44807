package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/airbussard/jvc/internal/persistence"
)

const minDisplayNameLength = 2

// MemberRepository captures the persistence operations needed by the member service.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) (Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	UpdateMember(ctx context.Context, member Member) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// UnitLookup resolves single organization units.
type UnitLookup interface {
	GetOrganizationUnit(ctx context.Context, id string) (OrganizationUnit, error)
}

// MemberService orchestrates validation, authorization, and persistence for members.
type MemberService struct {
	members     MemberRepository
	units       UnitLookup
	idGenerator func() string
	now         func() time.Time
}

// NewMemberService wires dependencies for the member service.
func NewMemberService(members MemberRepository, units UnitLookup, idGenerator func() string, now func() time.Time) *MemberService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, units: units, idGenerator: idGenerator, now: now}
}

// Invite registers a new member for administrators. Credentials are handled
// by the external authentication gate.
func (s *MemberService) Invite(ctx context.Context, params InviteMemberParams) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if !params.Principal.IsAdmin() {
		return Member{}, ErrUnauthorized
	}

	name := strings.TrimSpace(params.DisplayName)
	vErr := &ValidationError{}
	if utf8.RuneCountInString(name) < minDisplayNameLength {
		vErr.add("display_name", fmt.Sprintf("name must have at least %d characters", minDisplayNameLength))
	}
	if !params.Role.Valid() {
		vErr.add("role", "role must be normal, moderator or admin")
	}
	if vErr.HasErrors() {
		return Member{}, vErr
	}

	unitID := normalizeOptionalString(params.OrganizationUnitID)
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return Member{}, err
	}

	member := Member{
		ID:                 s.idGenerator(),
		DisplayName:        name,
		Role:               params.Role,
		OrganizationUnitID: unitID,
		CreatedAt:          s.now(),
	}
	member.UpdatedAt = member.CreatedAt

	persisted, err := s.members.CreateMember(ctx, member)
	if err != nil {
		return Member{}, mapMemberRepoError(err, member.ID)
	}
	return persisted, nil
}

// UpdateRole changes the role of a member for administrators. Administrators
// cannot change their own role.
func (s *MemberService) UpdateRole(ctx context.Context, params UpdateMemberRoleParams) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if !params.Principal.IsAdmin() {
		return Member{}, ErrUnauthorized
	}
	if !params.Role.Valid() {
		return Member{}, fieldError("role", "role must be normal, moderator or admin")
	}
	if params.MemberID == params.Principal.MemberID {
		return Member{}, &InvalidStateError{Field: "role", Reason: "administrators cannot change their own role"}
	}

	existing, err := s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		return Member{}, mapMemberRepoError(err, params.MemberID)
	}

	existing.Role = params.Role
	existing.UpdatedAt = s.now()

	persisted, err := s.members.UpdateMember(ctx, existing)
	if err != nil {
		return Member{}, mapMemberRepoError(err, params.MemberID)
	}
	return persisted, nil
}

// AssignUnit sets or clears the organization unit of a member for administrators.
func (s *MemberService) AssignUnit(ctx context.Context, params AssignMemberUnitParams) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if !params.Principal.IsAdmin() {
		return Member{}, ErrUnauthorized
	}

	unitID := normalizeOptionalString(params.OrganizationUnitID)
	if err := s.ensureUnit(ctx, unitID); err != nil {
		return Member{}, err
	}

	existing, err := s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		return Member{}, mapMemberRepoError(err, params.MemberID)
	}

	existing.OrganizationUnitID = unitID
	existing.UpdatedAt = s.now()

	persisted, err := s.members.UpdateMember(ctx, existing)
	if err != nil {
		return Member{}, mapMemberRepoError(err, params.MemberID)
	}
	return persisted, nil
}

// Get returns a single member to any authenticated member.
func (s *MemberService) Get(ctx context.Context, principal Principal, memberID string) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if principal.MemberID == "" {
		return Member{}, ErrUnauthorized
	}

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, mapMemberRepoError(err, memberID)
	}
	return member, nil
}

// List returns every member ordered by display name.
func (s *MemberService) List(ctx context.Context, principal Principal) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("MemberService is nil")
	}
	if principal.MemberID == "" {
		return nil, ErrUnauthorized
	}

	members, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DisplayName == sorted[j].DisplayName {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].DisplayName < sorted[j].DisplayName
	})
	return sorted, nil
}

func (s *MemberService) ensureUnit(ctx context.Context, unitID *string) error {
	if unitID == nil {
		return nil
	}
	if s.units == nil {
		return fmt.Errorf("organization unit lookup not configured")
	}
	if _, err := s.units.GetOrganizationUnit(ctx, *unitID); err != nil {
		if isNotFoundError(err) {
			return fieldError("organization_unit_id", "organization unit does not exist")
		}
		return err
	}
	return nil
}

func mapMemberRepoError(err error, memberID string) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFoundError(err):
		return notFound("member", memberID)
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("organization_unit_id", "organization unit does not exist")
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
