package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/airbussard/jvc/internal/persistence"
)

// OrganizationUnitRepository implements persistence.OrganizationUnitRepository using SQLite
type OrganizationUnitRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOrganizationUnitRepository creates a new SQLite organization unit repository
func NewOrganizationUnitRepository(pool *ConnectionPool) *OrganizationUnitRepository {
	return &OrganizationUnitRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateOrganizationUnit inserts a new unit.
func (r *OrganizationUnitRepository) CreateOrganizationUnit(ctx context.Context, unit persistence.OrganizationUnit) error {
	if unit.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO organization_units (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.helper.Exec(ctx, query,
		unit.ID,
		unit.Name,
		formatTimestamp(unit.CreatedAt),
		formatTimestamp(unit.UpdatedAt),
	); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateOrganizationUnit renames an existing unit.
func (r *OrganizationUnitRepository) UpdateOrganizationUnit(ctx context.Context, unit persistence.OrganizationUnit) error {
	query := `
		UPDATE organization_units
		SET name = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query, unit.Name, formatTimestamp(unit.UpdatedAt), unit.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetOrganizationUnit retrieves a unit by ID.
func (r *OrganizationUnitRepository) GetOrganizationUnit(ctx context.Context, id string) (persistence.OrganizationUnit, error) {
	if id == "" {
		return persistence.OrganizationUnit{}, persistence.ErrNotFound
	}
	query := `
		SELECT id, name, created_at, updated_at
		FROM organization_units
		WHERE id = ?
	`
	unit, err := scanOrganizationUnit(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.OrganizationUnit{}, r.mapper.MapError(err)
	}
	return unit, nil
}

// ListOrganizationUnits returns all units ordered by name then ID.
func (r *OrganizationUnitRepository) ListOrganizationUnits(ctx context.Context) ([]persistence.OrganizationUnit, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM organization_units
		ORDER BY name ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var units []persistence.OrganizationUnit
	for rows.Next() {
		unit, err := scanOrganizationUnit(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return units, nil
}

// DeleteOrganizationUnit detaches all members of the unit and deletes it in
// one transaction. It returns the number of detached members.
func (r *OrganizationUnitRepository) DeleteOrganizationUnit(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, persistence.ErrNotFound
	}

	var detached int64
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx,
			"UPDATE members SET organization_unit_id = NULL WHERE organization_unit_id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if detached, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		result, err = r.helper.ExecTx(ctx, tx, "DELETE FROM organization_units WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if deleted == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(detached), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganizationUnit(row rowScanner) (persistence.OrganizationUnit, error) {
	var (
		unit                     persistence.OrganizationUnit
		createdAtStr, updatedStr string
	)
	if err := row.Scan(&unit.ID, &unit.Name, &createdAtStr, &updatedStr); err != nil {
		return persistence.OrganizationUnit{}, err
	}
	var err error
	if unit.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.OrganizationUnit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if unit.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return persistence.OrganizationUnit{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return unit, nil
}
