package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airbussard/jvc/internal/persistence"
)

type unitRepoStub struct {
	units   map[string]OrganizationUnit
	members map[string]*string

	createErr error
	updateErr error
	deletedID string
}

func newUnitRepoStub(units ...OrganizationUnit) *unitRepoStub {
	r := &unitRepoStub{units: make(map[string]OrganizationUnit), members: make(map[string]*string)}
	for _, u := range units {
		r.units[u.ID] = u
	}
	return r
}

func (r *unitRepoStub) CreateOrganizationUnit(ctx context.Context, unit OrganizationUnit) (OrganizationUnit, error) {
	if r.createErr != nil {
		return OrganizationUnit{}, r.createErr
	}
	r.units[unit.ID] = unit
	return unit, nil
}

func (r *unitRepoStub) GetOrganizationUnit(ctx context.Context, id string) (OrganizationUnit, error) {
	unit, ok := r.units[id]
	if !ok {
		return OrganizationUnit{}, persistence.ErrNotFound
	}
	return unit, nil
}

func (r *unitRepoStub) UpdateOrganizationUnit(ctx context.Context, unit OrganizationUnit) (OrganizationUnit, error) {
	if r.updateErr != nil {
		return OrganizationUnit{}, r.updateErr
	}
	r.units[unit.ID] = unit
	return unit, nil
}

func (r *unitRepoStub) ListOrganizationUnits(ctx context.Context) ([]OrganizationUnit, error) {
	out := make([]OrganizationUnit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	return out, nil
}

func (r *unitRepoStub) DeleteOrganizationUnit(ctx context.Context, id string) (int, error) {
	if _, ok := r.units[id]; !ok {
		return 0, persistence.ErrNotFound
	}
	detached := 0
	for memberID, unitID := range r.members {
		if unitID != nil && *unitID == id {
			r.members[memberID] = nil
			detached++
		}
	}
	delete(r.units, id)
	r.deletedID = id
	return detached, nil
}

func TestOrganizationUnitService_Create(t *testing.T) {
	admin := Principal{MemberID: "admin", Role: RoleAdmin}
	now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := NewOrganizationUnitService(newUnitRepoStub(), nil, nil)

		_, err := svc.Create(context.Background(), CreateOrganizationUnitParams{Principal: Principal{MemberID: "m-1", Role: RoleModerator}, Name: "Kreis"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates name", func(t *testing.T) {
		svc := NewOrganizationUnitService(newUnitRepoStub(), nil, nil)

		_, err := svc.Create(context.Background(), CreateOrganizationUnitParams{Principal: admin, Name: "   "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("persists trimmed name", func(t *testing.T) {
		repo := newUnitRepoStub()
		svc := NewOrganizationUnitService(repo, func() string { return "u-1" }, func() time.Time { return now })

		unit, err := svc.Create(context.Background(), CreateOrganizationUnitParams{Principal: admin, Name: "  Stadtwerke  "})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if unit.ID != "u-1" || unit.Name != "Stadtwerke" || !unit.CreatedAt.Equal(now) {
			t.Fatalf("unexpected unit %+v", unit)
		}
	})

	t.Run("duplicate name already exists", func(t *testing.T) {
		repo := newUnitRepoStub()
		repo.createErr = persistence.ErrDuplicate
		svc := NewOrganizationUnitService(repo, func() string { return "u-2" }, nil)

		_, err := svc.Create(context.Background(), CreateOrganizationUnitParams{Principal: admin, Name: "Stadtwerke"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestOrganizationUnitService_Rename(t *testing.T) {
	admin := Principal{MemberID: "admin", Role: RoleAdmin}

	repo := newUnitRepoStub(OrganizationUnit{ID: "u-1", Name: "Alt"})
	svc := NewOrganizationUnitService(repo, nil, nil)

	unit, err := svc.Rename(context.Background(), RenameOrganizationUnitParams{Principal: admin, UnitID: "u-1", Name: "Neu"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if unit.Name != "Neu" {
		t.Fatalf("expected renamed unit, got %+v", unit)
	}

	if _, err := svc.Rename(context.Background(), RenameOrganizationUnitParams{Principal: admin, UnitID: "u-404", Name: "Neu"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrganizationUnitService_List(t *testing.T) {
	repo := newUnitRepoStub(
		OrganizationUnit{ID: "u-2", Name: "Stadtwerke"},
		OrganizationUnit{ID: "u-1", Name: "Kreis"},
		OrganizationUnit{ID: "u-3", Name: "Amt"},
	)
	svc := NewOrganizationUnitService(repo, nil, nil)

	units, err := svc.List(context.Background(), Principal{MemberID: "m-1"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(units) != 3 || units[0].Name != "Amt" || units[1].Name != "Kreis" || units[2].Name != "Stadtwerke" {
		t.Fatalf("expected units ordered by name, got %+v", units)
	}
}

func TestOrganizationUnitService_Delete(t *testing.T) {
	admin := Principal{MemberID: "admin", Role: RoleAdmin}

	t.Run("detaches members and deletes unit", func(t *testing.T) {
		repo := newUnitRepoStub(OrganizationUnit{ID: "u-1", Name: "Kreis"}, OrganizationUnit{ID: "u-2", Name: "Amt"})
		repo.members["m-1"] = strPtr("u-1")
		repo.members["m-2"] = strPtr("u-1")
		repo.members["m-3"] = strPtr("u-1")
		repo.members["m-4"] = strPtr("u-2")
		svc := NewOrganizationUnitService(repo, nil, nil)

		detached, err := svc.Delete(context.Background(), admin, "u-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if detached != 3 {
			t.Fatalf("expected three detached members, got %d", detached)
		}
		for _, id := range []string{"m-1", "m-2", "m-3"} {
			if repo.members[id] != nil {
				t.Fatalf("expected %s detached", id)
			}
		}
		if repo.members["m-4"] == nil {
			t.Fatalf("expected member of other unit untouched")
		}
	})

	t.Run("requires administrator privileges", func(t *testing.T) {
		repo := newUnitRepoStub(OrganizationUnit{ID: "u-1", Name: "Kreis"})
		svc := NewOrganizationUnitService(repo, nil, nil)

		if _, err := svc.Delete(context.Background(), Principal{MemberID: "m-1", Role: RoleModerator}, "u-1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if repo.deletedID != "" {
			t.Fatalf("expected no deletion")
		}
	})

	t.Run("unknown unit is not found", func(t *testing.T) {
		svc := NewOrganizationUnitService(newUnitRepoStub(), nil, nil)

		if _, err := svc.Delete(context.Background(), admin, "u-404"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
