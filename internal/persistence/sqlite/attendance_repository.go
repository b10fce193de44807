package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/persistence"
)

// AttendanceRepository implements persistence.AttendanceRepository using SQLite
type AttendanceRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAttendanceRepository creates a new SQLite attendance repository
func NewAttendanceRepository(pool *ConnectionPool) *AttendanceRepository {
	return &AttendanceRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const attendanceColumns = `id, event_id, member_id, status, requires_exemption, created_at, updated_at`

// UpsertAttendance writes the attendance of a member for an event in a single
// statement. An existing row keeps its ID, creation time and exemption flag;
// the flag is cleared when the new status is absent.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, attendance persistence.Attendance) (persistence.Attendance, error) {
	if attendance.ID == "" || attendance.EventID == "" || attendance.MemberID == "" {
		return persistence.Attendance{}, persistence.ErrConstraintViolation
	}
	if attendance.Status == "absent" {
		attendance.RequiresExemption = false
	}

	query := `
		INSERT INTO attendances (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id, member_id) DO UPDATE SET
			status = excluded.status,
			requires_exemption = CASE
				WHEN excluded.status = 'absent' THEN 0
				ELSE attendances.requires_exemption
			END,
			updated_at = excluded.updated_at
		RETURNING ` + attendanceColumns

	stored, err := scanAttendance(r.helper.QueryRow(ctx, query,
		attendance.ID,
		attendance.EventID,
		attendance.MemberID,
		attendance.Status,
		attendance.RequiresExemption,
		formatTimestamp(attendance.CreatedAt),
		formatTimestamp(attendance.UpdatedAt),
	))
	if err != nil {
		return persistence.Attendance{}, r.mapper.MapError(err)
	}
	return stored, nil
}

// UpdateAttendanceExemption sets the exemption flag when the attendance exists
// and its status is not absent.
func (r *AttendanceRepository) UpdateAttendanceExemption(ctx context.Context, eventID, memberID string, requiresExemption bool, updatedAt time.Time) (persistence.Attendance, error) {
	query := `
		UPDATE attendances
		SET requires_exemption = ?, updated_at = ?
		WHERE event_id = ? AND member_id = ? AND status <> 'absent'
		RETURNING ` + attendanceColumns

	stored, err := scanAttendance(r.helper.QueryRow(ctx, query,
		requiresExemption,
		formatTimestamp(updatedAt),
		eventID,
		memberID,
	))
	if err != nil {
		return persistence.Attendance{}, r.mapper.MapError(err)
	}
	return stored, nil
}

// GetAttendance retrieves the attendance of memberID for eventID.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, eventID, memberID string) (persistence.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE event_id = ? AND member_id = ?`
	attendance, err := scanAttendance(r.helper.QueryRow(ctx, query, eventID, memberID))
	if err != nil {
		return persistence.Attendance{}, r.mapper.MapError(err)
	}
	return attendance, nil
}

// ListAttendances returns attendances matching the filter ordered by ID.
func (r *AttendanceRepository) ListAttendances(ctx context.Context, filter persistence.AttendanceFilter) ([]persistence.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances`

	var (
		conditions []string
		args       []any
	)
	if len(filter.EventIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("event_id IN (%s)", placeholders(len(filter.EventIDs))))
		for _, id := range filter.EventIDs {
			args = append(args, id)
		}
	}
	if filter.MemberID != nil {
		conditions = append(conditions, "member_id = ?")
		args = append(args, *filter.MemberID)
	}
	if filter.RequiresExemption != nil {
		conditions = append(conditions, "requires_exemption = ?")
		args = append(args, *filter.RequiresExemption)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var attendances []persistence.Attendance
	for rows.Next() {
		attendance, err := scanAttendance(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		attendances = append(attendances, attendance)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return attendances, nil
}

// DeleteAttendance removes the attendance and reports whether one existed.
func (r *AttendanceRepository) DeleteAttendance(ctx context.Context, eventID, memberID string) (bool, error) {
	result, err := r.helper.Exec(ctx, "DELETE FROM attendances WHERE event_id = ? AND member_id = ?", eventID, memberID)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanAttendance(row rowScanner) (persistence.Attendance, error) {
	var (
		attendance               persistence.Attendance
		createdAtStr, updatedStr string
	)
	if err := row.Scan(
		&attendance.ID,
		&attendance.EventID,
		&attendance.MemberID,
		&attendance.Status,
		&attendance.RequiresExemption,
		&createdAtStr,
		&updatedStr,
	); err != nil {
		return persistence.Attendance{}, err
	}

	var err error
	if attendance.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return persistence.Attendance{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if attendance.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return persistence.Attendance{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return attendance, nil
}
