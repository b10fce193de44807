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

const maxUnitNameLength = 120

// OrganizationUnitRepository captures the persistence operations needed by the service.
type OrganizationUnitRepository interface {
	CreateOrganizationUnit(ctx context.Context, unit OrganizationUnit) (OrganizationUnit, error)
	GetOrganizationUnit(ctx context.Context, id string) (OrganizationUnit, error)
	UpdateOrganizationUnit(ctx context.Context, unit OrganizationUnit) (OrganizationUnit, error)
	ListOrganizationUnits(ctx context.Context) ([]OrganizationUnit, error)
	// DeleteOrganizationUnit detaches every member from the unit and removes
	// it atomically, returning the number of detached members.
	DeleteOrganizationUnit(ctx context.Context, id string) (int, error)
}

// OrganizationUnitService orchestrates validation, authorization, and persistence for units.
type OrganizationUnitService struct {
	units       OrganizationUnitRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewOrganizationUnitService constructs a unit service with the provided dependencies.
func NewOrganizationUnitService(units OrganizationUnitRepository, idGenerator func() string, now func() time.Time) *OrganizationUnitService {
	return NewOrganizationUnitServiceWithLogger(units, idGenerator, now, nil)
}

// NewOrganizationUnitServiceWithLogger constructs a unit service with a specified logger.
func NewOrganizationUnitServiceWithLogger(units OrganizationUnitRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *OrganizationUnitService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &OrganizationUnitService{units: units, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *OrganizationUnitService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OrganizationUnitService", operation, attrs...)
}

// Create persists a new unit for administrators.
func (s *OrganizationUnitService) Create(ctx context.Context, params CreateOrganizationUnitParams) (unit OrganizationUnit, err error) {
	if s == nil {
		err = fmt.Errorf("OrganizationUnitService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.MemberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create organization unit", failureAttrs(err)...)
			return
		}
		logger.With("unit_id", unit.ID).InfoContext(ctx, "organization unit created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	name := strings.TrimSpace(params.Name)
	if vErr := validateUnitName(name); vErr.HasErrors() {
		err = vErr
		return
	}

	unit = OrganizationUnit{
		ID:        s.idGenerator(),
		Name:      name,
		CreatedAt: s.now(),
	}
	unit.UpdatedAt = unit.CreatedAt

	unit, err = s.units.CreateOrganizationUnit(ctx, unit)
	if err != nil {
		err = mapUnitRepoError(err, "")
	}
	return
}

// Rename changes the name of a unit for administrators.
func (s *OrganizationUnitService) Rename(ctx context.Context, params RenameOrganizationUnitParams) (unit OrganizationUnit, err error) {
	if s == nil {
		err = fmt.Errorf("OrganizationUnitService is nil")
		return
	}
	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Rename",
		"principal_id", params.Principal.MemberID,
		"unit_id", params.UnitID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to rename organization unit", failureAttrs(err)...)
			return
		}
		logger.InfoContext(ctx, "organization unit renamed")
	}()

	name := strings.TrimSpace(params.Name)
	if vErr := validateUnitName(name); vErr.HasErrors() {
		err = vErr
		return
	}

	var existing OrganizationUnit
	existing, err = s.units.GetOrganizationUnit(ctx, params.UnitID)
	if err != nil {
		err = mapUnitRepoError(err, params.UnitID)
		return
	}

	existing.Name = name
	existing.UpdatedAt = s.now()

	unit, err = s.units.UpdateOrganizationUnit(ctx, existing)
	if err != nil {
		err = mapUnitRepoError(err, params.UnitID)
	}
	return
}

// List returns all units ordered by name for any authenticated member.
func (s *OrganizationUnitService) List(ctx context.Context, principal Principal) (units []OrganizationUnit, err error) {
	if s == nil {
		err = fmt.Errorf("OrganizationUnitService is nil")
		return
	}

	var raw []OrganizationUnit
	raw, err = s.units.ListOrganizationUnits(ctx)
	if err != nil {
		s.loggerWith(ctx, "List", "principal_id", principal.MemberID).
			ErrorContext(ctx, "failed to list organization units", failureAttrs(err)...)
		return
	}

	units = make([]OrganizationUnit, len(raw))
	copy(units, raw)
	sort.Slice(units, func(i, j int) bool {
		if units[i].Name == units[j].Name {
			return units[i].ID < units[j].ID
		}
		return units[i].Name < units[j].Name
	})
	return
}

// Delete removes a unit for administrators. Members of the unit stay and lose
// their unit reference in the same transaction. It returns the number of
// detached members.
func (s *OrganizationUnitService) Delete(ctx context.Context, principal Principal, unitID string) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("OrganizationUnitService is nil")
	}
	if !principal.IsAdmin() {
		return 0, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.MemberID,
		"unit_id", unitID,
	)

	if strings.TrimSpace(unitID) == "" {
		return 0, fieldError("unit_id", "organization unit is required")
	}

	detached, err := s.units.DeleteOrganizationUnit(ctx, unitID)
	if err != nil {
		err = mapUnitRepoError(err, unitID)
		logger.ErrorContext(ctx, "failed to delete organization unit", failureAttrs(err)...)
		return 0, err
	}

	logger.InfoContext(ctx, "organization unit deleted", "detached_members", detached)
	return detached, nil
}

func validateUnitName(name string) *ValidationError {
	vErr := &ValidationError{}
	switch {
	case name == "":
		vErr.add("name", "name is required")
	case len([]rune(name)) > maxUnitNameLength:
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxUnitNameLength))
	}
	return vErr
}

func mapUnitRepoError(err error, unitID string) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return notFound("organization unit", unitID)
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fieldError("name", "name is not allowed")
	}
	return err
}
