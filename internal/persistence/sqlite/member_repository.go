package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/airbussard/jvc/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite
type MemberRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const memberColumns = `id, display_name, role, organization_unit_id, created_at, updated_at`

// CreateMember inserts a new member.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.helper.Exec(ctx, query,
		member.ID,
		member.DisplayName,
		member.Role,
		nullableString(member.OrganizationUnitID),
		formatTimestamp(member.CreatedAt),
		formatTimestamp(member.UpdatedAt),
	); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateMember overwrites display name, role and unit of an existing member.
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) error {
	query := `
		UPDATE members
		SET display_name = ?, role = ?, organization_unit_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		member.DisplayName,
		member.Role,
		nullableString(member.OrganizationUnitID),
		formatTimestamp(member.UpdatedAt),
		member.ID,
	)
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

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = ?`
	member, err := scanMember(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// ListMembers returns all members ordered by display name then ID.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY display_name ASC, id ASC`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member                   persistence.Member
		unitID                   sql.NullString
		createdAtStr, updatedStr string
	)
	if err := row.Scan(
		&member.ID,
		&member.DisplayName,
		&member.Role,
		&unitID,
		&createdAtStr,
		&updatedStr,
	); err != nil {
		return persistence.Member{}, err
	}
	member.OrganizationUnitID = stringPointer(unitID)

	var err error
	if member.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if member.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return member, nil
}
